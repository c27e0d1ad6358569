package capture

import (
	"image"

	"github.com/bryanchriswhite/screenreel/internal/target"
)

// Options configures a capture run.
type Options struct {
	// FrameRate is the delivery rate in frames per second.
	FrameRate int

	// CaptureCursor composites the pointer into each frame.
	CaptureCursor bool

	// DrawBorder draws a highlight border around the captured content.
	DrawBorder bool
}

// Control is handed to the frame-arrival callback so the receiver can tell
// the runtime to cease delivery without blocking.
type Control interface {
	Stop()
}

// Callbacks receive capture events. Both callbacks are invoked from the
// runtime's own goroutine, strictly sequentially, never concurrently with
// each other.
type Callbacks struct {
	// OnFrameArrived is called once per captured frame. Returning an error
	// stops delivery.
	OnFrameArrived func(frame *image.RGBA, ctl Control) error

	// OnClosed is called when the capture target disappears, e.g. the window
	// is closed. No further frames are delivered afterwards.
	OnClosed func()
}

// Handle controls a running capture.
type Handle interface {
	// Stop is a best-effort request to cease frame delivery. It does not
	// wait for the delivery goroutine to finish.
	Stop()

	// Done is closed when frame delivery has ended, for any reason.
	Done() <-chan struct{}
}

// Runtime starts delivering frames from a capture target. The session core
// depends only on this contract, not on the X11 engine behind it.
type Runtime interface {
	Begin(tgt target.Target, opts Options, cb Callbacks) (Handle, error)
}
