package session

import (
	"fmt"
	"image"

	"github.com/bryanchriswhite/screenreel/internal/encoder"
)

// Sink owns the live encoder handle for one recording. Once finalized the
// handle is consumed: further submits fail with encoder.ErrClosed and further
// finalize calls are successful no-ops. The no-op matters because both the
// fatal-error path and the normal stop path may try to finalize.
type Sink struct {
	enc encoder.Encoder
}

// NewSink wraps an open encoder.
func NewSink(enc encoder.Encoder) *Sink {
	return &Sink{enc: enc}
}

// Submit passes one frame to the encoder.
func (s *Sink) Submit(frame *image.RGBA) error {
	if s.enc == nil {
		return encoder.ErrClosed
	}
	if err := s.enc.Submit(frame); err != nil {
		return fmt.Errorf("sink: %w", err)
	}
	return nil
}

// Finalize flushes and closes the container. The encoder handle is consumed
// even when finalization fails; the container cannot be written twice.
func (s *Sink) Finalize() error {
	if s.enc == nil {
		return nil
	}
	enc := s.enc
	s.enc = nil
	if err := enc.Finalize(); err != nil {
		return fmt.Errorf("sink: %w", err)
	}
	return nil
}

// Finalized reports whether the encoder handle has been consumed.
func (s *Sink) Finalized() bool {
	return s.enc == nil
}
