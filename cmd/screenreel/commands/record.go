package commands

import (
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/bryanchriswhite/screenreel/internal/api"
	"github.com/bryanchriswhite/screenreel/internal/capture"
	"github.com/bryanchriswhite/screenreel/internal/config"
	"github.com/bryanchriswhite/screenreel/internal/logger"
	"github.com/bryanchriswhite/screenreel/internal/power"
	"github.com/bryanchriswhite/screenreel/internal/session"
	"github.com/bryanchriswhite/screenreel/internal/target"
	"github.com/spf13/cobra"
)

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record a window or monitor to an MP4 file",
	Long: `Record an X11 window or monitor to an MP4 file.

With no target flags the primary monitor is recorded. Windows are picked
by case-insensitive title substring. Recording runs until Ctrl+C or until
the target disappears.`,
	Example: `  # Record the primary monitor to video.mp4
  screenreel record

  # Record a specific monitor
  screenreel record --monitor-index 1 --output screen.mp4

  # Record a window by title
  screenreel record --window-name firefox --output browser.mp4

  # Record at 30 fps with a lower bitrate
  screenreel record --frame-rate 30 --bitrate 8000000

  # Expose live status on localhost:8765
  screenreel record --status-addr localhost:8765`,
	RunE: runRecord,
}

var (
	recordWindowName    string
	recordMonitorIndex  int
	recordOutput        string
	recordBitrate       int
	recordFrameRate     int
	recordCursorCapture string
	recordDrawBorder    string
	recordEncoder       string
	recordStatusAddr    string
)

func init() {
	rootCmd.AddCommand(recordCmd)

	recordCmd.Flags().StringVarP(&recordWindowName, "window-name", "w", "", "record the first window whose title contains this string")
	recordCmd.Flags().IntVarP(&recordMonitorIndex, "monitor-index", "m", -1, "record the monitor with this index (0 is primary)")
	recordCmd.Flags().StringVarP(&recordOutput, "output", "o", "", "output file path")
	recordCmd.Flags().IntVarP(&recordBitrate, "bitrate", "b", 0, "video bitrate in bits per second")
	recordCmd.Flags().IntVarP(&recordFrameRate, "frame-rate", "r", 0, "capture frame rate")
	recordCmd.Flags().StringVar(&recordCursorCapture, "cursor-capture", "default", "capture the cursor (always, never or default)")
	recordCmd.Flags().StringVar(&recordDrawBorder, "draw-border", "default", "draw a capture border (always, never or default)")
	recordCmd.Flags().StringVar(&recordEncoder, "encoder", "", "encoding backend (ffmpeg or gstreamer)")
	recordCmd.Flags().StringVar(&recordStatusAddr, "status-addr", "", "serve live recording status on this address")

	recordCmd.MarkFlagsMutuallyExclusive("window-name", "monitor-index")
}

func runRecord(cmd *cobra.Command, args []string) error {
	configMgr, err := config.NewManager(GetConfigFile())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	defaults := configMgr.Get()
	setupLogging(defaults)
	log := logger.WithComponent("record")

	if recordOutput == "" {
		recordOutput = defaults.OutputPath
	}
	if recordBitrate == 0 {
		recordBitrate = defaults.Bitrate
	}
	if recordFrameRate == 0 {
		recordFrameRate = defaults.FrameRate
	}
	if recordEncoder == "" {
		recordEncoder = defaults.Encoder
	}
	if recordStatusAddr == "" {
		recordStatusAddr = defaults.StatusAddr
	}

	cursorToggle, err := config.ParseToggle(recordCursorCapture)
	if err != nil {
		return err
	}
	borderToggle, err := config.ParseToggle(recordDrawBorder)
	if err != nil {
		return err
	}

	resolver, err := target.NewResolver()
	if err != nil {
		return fmt.Errorf("failed to connect to X11: %w", err)
	}
	defer resolver.Close()

	tgt, err := resolveTarget(resolver)
	if err != nil {
		return err
	}
	log.Info().
		Str("target", tgt.Label()).
		Str("output", recordOutput).
		Int("frame_rate", recordFrameRate).
		Msg("Recording target resolved")

	cfg := config.Recording{
		Width:         tgt.Width(),
		Height:        tgt.Height(),
		OutputPath:    recordOutput,
		Bitrate:       recordBitrate,
		FrameRate:     recordFrameRate,
		CursorCapture: cursorToggle,
		DrawBorder:    borderToggle,
		Encoder:       recordEncoder,
	}

	var statusSrv *api.Server
	if recordStatusAddr != "" {
		statusSrv = api.NewServer(tgt.Label(), recordOutput)
		go func() {
			if err := statusSrv.Start(recordStatusAddr); err != nil {
				log.Warn().Err(err).Msg("Status server stopped")
			}
		}()
	}

	var frames atomic.Uint64
	opts := session.Options{
		CaptureCursor: resolveCursor(cursorToggle, tgt),
		DrawBorder:    resolveBorder(borderToggle, tgt),
		OnProgress: func(p session.Progress) {
			frames.Store(p.Frames)
			fmt.Printf("\rRecording: %6.2fs | FPS: %6.2f", p.Elapsed.Seconds(), p.FPS)
			if statusSrv != nil {
				statusSrv.ReportProgress(session.StateCapturing, p)
			}
		},
	}

	sess, err := session.New(tgt, cfg, nil, opts)
	if err != nil {
		return err
	}

	// Ctrl+C requests a stop; the session finalizes the file before the
	// capture loop exits, so the output is always playable.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println()
		log.Info().Msg("Stop requested, finishing recording")
		sess.Stop().RequestStop()
	}()
	defer signal.Stop(sigChan)

	engine, err := capture.NewX11Engine(resolver.Conn())
	if err != nil {
		return fmt.Errorf("failed to initialize capture: %w", err)
	}

	inhibitor := power.Inhibit("Recording " + tgt.Label())
	defer inhibitor.Release()

	fmt.Printf("Recording %s, press Ctrl+C to stop\n", tgt.Label())
	runErr := sess.Start(engine)
	fmt.Println()

	if statusSrv != nil {
		statusSrv.ReportState(sess.State())
	}
	if runErr != nil {
		return fmt.Errorf("recording failed: %w", runErr)
	}

	fmt.Printf("Saved %d frames to %s\n", frames.Load(), recordOutput)
	return nil
}

func resolveTarget(resolver *target.Resolver) (target.Target, error) {
	switch {
	case recordWindowName != "":
		return resolver.ResolveWindow(recordWindowName)
	case recordMonitorIndex >= 0:
		return resolver.ResolveMonitor(recordMonitorIndex)
	default:
		return resolver.PrimaryMonitor()
	}
}

// resolveCursor maps the cursor toggle onto the target kind: monitors show
// the cursor by default, windows do not.
func resolveCursor(t config.Toggle, tgt target.Target) bool {
	switch t {
	case config.ToggleAlways:
		return true
	case config.ToggleNever:
		return false
	default:
		return tgt.Kind() == target.KindMonitor
	}
}

// resolveBorder maps the border toggle onto the target kind: window
// recordings are outlined by default, monitors are not.
func resolveBorder(t config.Toggle, tgt target.Target) bool {
	switch t {
	case config.ToggleAlways:
		return true
	case config.ToggleNever:
		return false
	default:
		return tgt.Kind() == target.KindWindow
	}
}
