package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/bryanchriswhite/screenreel/internal/target"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List recordable windows and monitors",
	Long: `List the windows and monitors that can be recorded.

This command connects to the X11 server and prints every client window
and every monitor with the identifiers the record command accepts.`,
	Example: `  # List windows and monitors in table format (default)
  screenreel list

  # List in JSON format
  screenreel list --format json

  # List only monitors
  screenreel list --monitors`,
	RunE: runList,
}

var (
	listFormat   string
	listWindows  bool
	listMonitors bool
)

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().StringVarP(&listFormat, "format", "f", "table", "output format (table or json)")
	listCmd.Flags().BoolVarP(&listWindows, "windows", "w", false, "show only windows")
	listCmd.Flags().BoolVarP(&listMonitors, "monitors", "m", false, "show only monitors")
}

type windowRow struct {
	ID     uint32 `json:"id"`
	Title  string `json:"title"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type monitorRow struct {
	Index   int  `json:"index"`
	X       int  `json:"x"`
	Y       int  `json:"y"`
	Width   int  `json:"width"`
	Height  int  `json:"height"`
	Primary bool `json:"primary"`
}

func runList(cmd *cobra.Command, args []string) error {
	resolver, err := target.NewResolver()
	if err != nil {
		return fmt.Errorf("failed to connect to X11: %w", err)
	}
	defer resolver.Close()

	showWindows := listWindows || !listMonitors
	showMonitors := listMonitors || !listWindows

	var windows []windowRow
	if showWindows {
		wins, err := resolver.ListWindows()
		if err != nil {
			return fmt.Errorf("failed to list windows: %w", err)
		}
		for _, w := range wins {
			windows = append(windows, windowRow{
				ID:     uint32(w.ID),
				Title:  w.Title,
				Width:  w.Width(),
				Height: w.Height(),
			})
		}
	}

	var monitors []monitorRow
	if showMonitors {
		mons, err := resolver.ListMonitors()
		if err != nil {
			return fmt.Errorf("failed to list monitors: %w", err)
		}
		for _, m := range mons {
			monitors = append(monitors, monitorRow{
				Index:   m.Index,
				X:       m.X,
				Y:       m.Y,
				Width:   m.Width(),
				Height:  m.Height(),
				Primary: m.Primary,
			})
		}
	}

	switch listFormat {
	case "json":
		out := map[string]interface{}{}
		if showWindows {
			out["windows"] = windows
		}
		if showMonitors {
			out["monitors"] = monitors
		}
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(out)
	case "table":
		if showMonitors {
			printMonitorsTable(monitors)
		}
		if showWindows {
			if showMonitors {
				fmt.Println()
			}
			printWindowsTable(windows)
		}
		return nil
	default:
		return fmt.Errorf("unsupported format: %s (use 'table' or 'json')", listFormat)
	}
}

func printMonitorsTable(monitors []monitorRow) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintln(w, "INDEX\tGEOMETRY\tPOSITION\tPRIMARY")
	fmt.Fprintln(w, "-----\t--------\t--------\t-------")

	for _, m := range monitors {
		primary := "No"
		if m.Primary {
			primary = "Yes"
		}
		fmt.Fprintf(w, "%d\t%dx%d\t(%d, %d)\t%s\n", m.Index, m.Width, m.Height, m.X, m.Y, primary)
	}
}

func printWindowsTable(windows []windowRow) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintln(w, "ID\tGEOMETRY\tTITLE")
	fmt.Fprintln(w, "--\t--------\t-----")

	for _, win := range windows {
		title := win.Title
		if title == "" {
			title = "(untitled)"
		}
		fmt.Fprintf(w, "0x%x\t%dx%d\t%s\n", win.ID, win.Width, win.Height, title)
	}
}
