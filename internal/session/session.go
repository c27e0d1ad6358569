package session

import (
	"fmt"
	"image"
	"time"

	"github.com/bryanchriswhite/screenreel/internal/capture"
	"github.com/bryanchriswhite/screenreel/internal/config"
	"github.com/bryanchriswhite/screenreel/internal/encoder"
	"github.com/bryanchriswhite/screenreel/internal/logger"
	"github.com/bryanchriswhite/screenreel/internal/target"
)

// State is the session lifecycle state. Stopped and Failed are terminal.
type State int

const (
	StateCreated State = iota
	StateCapturing
	StateStopping
	StateStopped
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateCapturing:
		return "capturing"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// SinkOpenError reports that the encoder could not be opened for the
// configured output. It aborts startup and is never retried.
type SinkOpenError struct {
	Path string
	Err  error
}

func (e *SinkOpenError) Error() string {
	return fmt.Sprintf("failed to open encoder for %s: %v", e.Path, e.Err)
}

func (e *SinkOpenError) Unwrap() error {
	return e.Err
}

// Progress is a live throughput snapshot, produced once per frame. The caller
// decides how to render it.
type Progress struct {
	Elapsed time.Duration
	FPS     float64
	Frames  uint64
}

// Options tune a session beyond the recording configuration.
type Options struct {
	// CaptureCursor and DrawBorder are passed through to the capture runtime.
	CaptureCursor bool
	DrawBorder    bool

	// OnProgress, when set, receives a throughput snapshot per frame. It is
	// invoked on the capture runtime's goroutine and must not block.
	OnProgress func(Progress)

	// OpenEncoder opens the encoder backend. Defaults to encoder.Open.
	OpenEncoder func(config.Recording) (encoder.Encoder, error)
}

// Session drives one recording: it receives frame-arrival events from the
// capture runtime, feeds the sink, reports throughput, and owns the
// cooperative shutdown. All event handling happens on the runtime's single
// callback goroutine; the only cross-thread state is the StopSignal.
type Session struct {
	cfg  config.Recording
	tgt  target.Target
	stop *StopSignal
	opts Options

	// Mutated only on the capture callback goroutine (and in Start before
	// capture begins).
	state State
	sink  *Sink
	meter *Meter
	err   error
}

// New validates the configuration against the resolved target and creates a
// session in the Created state. The stop signal may be shared with an
// external canceller; if nil, a private one is created.
func New(tgt target.Target, cfg config.Recording, stop *StopSignal, opts Options) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Width != tgt.Width() || cfg.Height != tgt.Height() {
		return nil, fmt.Errorf("configured dimensions %dx%d do not match %s",
			cfg.Width, cfg.Height, tgt.Label())
	}
	if stop == nil {
		stop = NewStopSignal()
	}
	if opts.OpenEncoder == nil {
		opts.OpenEncoder = encoder.Open
	}

	return &Session{
		cfg:  cfg,
		tgt:  tgt,
		stop: stop,
		opts: opts,
	}, nil
}

// Stop returns the session's stop signal.
func (s *Session) Stop() *StopSignal {
	return s.stop
}

// State returns the current lifecycle state. Meaningful from the callback
// goroutine or after Start has returned.
func (s *Session) State() State {
	return s.state
}

// Start opens the sink, begins capture, and blocks until the recording ends.
// A sink open failure is returned synchronously as a SinkOpenError before any
// frame callback is invoked. After a clean stop it returns nil; a fatal
// mid-session error is returned once.
func (s *Session) Start(rt capture.Runtime) error {
	if s.state != StateCreated {
		return fmt.Errorf("session already started (state %s)", s.state)
	}

	log := logger.WithComponent("session")

	enc, err := s.opts.OpenEncoder(s.cfg)
	if err != nil {
		s.state = StateFailed
		s.err = &SinkOpenError{Path: s.cfg.OutputPath, Err: err}
		return s.err
	}
	s.sink = NewSink(enc)
	s.meter = NewMeter()
	s.state = StateCapturing

	log.Info().
		Str("target", s.tgt.Label()).
		Str("output", s.cfg.OutputPath).
		Int("frame_rate", s.cfg.FrameRate).
		Int("bitrate", s.cfg.Bitrate).
		Msg("Recording started")

	handle, err := rt.Begin(s.tgt, capture.Options{
		FrameRate:     s.cfg.FrameRate,
		CaptureCursor: s.opts.CaptureCursor,
		DrawBorder:    s.opts.DrawBorder,
	}, capture.Callbacks{
		OnFrameArrived: s.onFrameArrived,
		OnClosed:       s.onTargetClosed,
	})
	if err != nil {
		// The container was opened but capture never started; close it so
		// the file on disk is at least well-formed.
		if ferr := s.sink.Finalize(); ferr != nil {
			log.Warn().Err(ferr).Msg("Finalizing sink after capture start failure")
		}
		s.state = StateFailed
		s.err = fmt.Errorf("failed to begin capture: %w", err)
		return s.err
	}

	<-handle.Done()

	if s.err != nil {
		return s.err
	}
	return nil
}

// onFrameArrived handles one frame-arrival event. Invoked by the capture
// runtime on its own goroutine, once per frame, never concurrently.
func (s *Session) onFrameArrived(frame *image.RGBA, ctl capture.Control) error {
	if s.state != StateCapturing {
		logger.WithComponent("session").Warn().
			Str("state", s.state.String()).
			Msg("Ignoring frame event outside capturing state")
		return nil
	}

	s.meter.RecordFrame()
	elapsed, fps := s.meter.Snapshot()
	if s.opts.OnProgress != nil {
		s.opts.OnProgress(Progress{Elapsed: elapsed, FPS: fps, Frames: s.meter.Total()})
	}

	if err := s.sink.Submit(frame); err != nil {
		// Fatal: the stream cannot be replayed, so the recording ends here.
		// Best-effort finalize preserves whatever was already encoded.
		log := logger.WithComponent("session")
		log.Error().Err(err).Uint64("frame", s.meter.Total()).Msg("Frame submission failed")
		if ferr := s.sink.Finalize(); ferr != nil {
			log.Warn().Err(ferr).Msg("Best-effort finalize after submit failure")
		}
		s.state = StateFailed
		s.err = err
		ctl.Stop()
		return err
	}

	if s.stop.StopRequested() {
		// Finalize before stopping delivery: if delivery stopped first and no
		// further callback arrived, the sink would never be finalized.
		s.state = StateStopping
		if err := s.sink.Finalize(); err != nil {
			s.state = StateFailed
			s.err = err
			ctl.Stop()
			return err
		}
		ctl.Stop()
		s.state = StateStopped
		logger.WithComponent("session").Info().
			Uint64("frames", s.meter.Total()).
			Msg("Recording stopped by request")
	}

	return nil
}

// onTargetClosed handles the target disappearing (window closed, monitor
// unplugged). It may arrive in any state and acts as an implicit stop
// request: finalize if a sink is still open, otherwise do nothing.
func (s *Session) onTargetClosed() {
	log := logger.WithComponent("session")

	switch s.state {
	case StateStopped, StateFailed:
		log.Warn().Str("state", s.state.String()).Msg("Ignoring target-closed event in terminal state")
		return
	}

	log.Info().Str("target", s.tgt.Label()).Msg("Capture target closed")

	if s.sink == nil || s.sink.Finalized() {
		s.state = StateStopped
		return
	}

	s.state = StateStopping
	if err := s.sink.Finalize(); err != nil {
		s.state = StateFailed
		s.err = err
		return
	}
	s.state = StateStopped
}
