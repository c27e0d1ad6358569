package session

import "sync/atomic"

// StopSignal is the cooperative cancellation flag shared between the session
// and an external canceller such as a Ctrl+C handler. It may be set from any
// goroutine; the session observes it at frame boundaries. Setting the flag is
// idempotent: only the first false-to-true transition has effect.
//
// atomic.Bool gives sequentially consistent loads and stores, so a stop
// requested before a frame callback begins is visible inside that callback.
type StopSignal struct {
	stopped atomic.Bool
}

// NewStopSignal returns an unset stop signal.
func NewStopSignal() *StopSignal {
	return &StopSignal{}
}

// RequestStop sets the flag. Safe to call from any goroutine, any number of
// times. The requester never waits for the session; stopping happens at the
// session's next frame boundary.
func (s *StopSignal) RequestStop() {
	s.stopped.Store(true)
}

// StopRequested reports whether a stop has been requested. Non-blocking.
func (s *StopSignal) StopRequested() bool {
	return s.stopped.Load()
}
