package commands

import (
	"fmt"
	"os"

	"github.com/bryanchriswhite/screenreel/internal/config"
	"github.com/bryanchriswhite/screenreel/internal/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "screenreel",
		Short: "ScreenReel - X11 screen recorder",
		Long: `ScreenReel records an X11 window or monitor to an MP4 file.

Features:
  • Record a whole monitor or a single window
  • Pick windows by title substring
  • Cursor capture and capture-border highlight
  • FFmpeg or GStreamer encoding backends
  • Live recording status over HTTP and WebSocket
  • Persistent configuration`,
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/screenreel/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")

	// Bind flags to viper
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// GetConfigFile returns the config file path
func GetConfigFile() string {
	return cfgFile
}

// setupLogging initializes the global logger from the log-level flag,
// falling back to the persisted default.
func setupLogging(defaults config.Defaults) {
	level := defaults.LogLevel
	if viper.IsSet("log_level") && viper.GetString("log_level") != "" {
		level = viper.GetString("log_level")
	}
	logger.Init(level, true)
}
