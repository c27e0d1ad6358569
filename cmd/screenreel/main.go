package main

import "github.com/bryanchriswhite/screenreel/cmd/screenreel/commands"

func main() {
	commands.Execute()
}
