package encoder

import (
	"errors"
	"fmt"
	"image"
	"os"

	"github.com/bryanchriswhite/screenreel/internal/config"
)

// ErrClosed is returned when a frame is submitted after finalization. Under
// correct session use this never happens; seeing it means a state machine bug,
// not a recoverable condition.
var ErrClosed = errors.New("encoder: already finalized")

// SubmitError is a fatal mid-session encode failure. Frames are a live stream
// and cannot be replayed, so the session ends the recording on the first one.
type SubmitError struct {
	Err error
}

func (e *SubmitError) Error() string {
	return fmt.Sprintf("frame submit failed: %v", e.Err)
}

func (e *SubmitError) Unwrap() error {
	return e.Err
}

// Encoder accepts raw RGBA frames and produces a finished video container.
// Implementations are used from a single goroutine; Finalize is called exactly
// once by the owning sink.
type Encoder interface {
	// Submit encodes one frame. The frame dimensions must match the
	// configuration the encoder was opened with.
	Submit(frame *image.RGBA) error

	// Finalize flushes pending frames and closes the container.
	Finalize() error
}

// Open starts the configured encoder backend against the output path, or
// fails synchronously. The output path is probed first so a bad path is
// reported before any capture starts.
func Open(cfg config.Recording) (Encoder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Probing catches unwritable paths up front; subprocess backends would
	// otherwise only report them after the first frame.
	f, err := os.OpenFile(cfg.OutputPath, os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("output path %s is not writable: %w", cfg.OutputPath, err)
	}
	f.Close()

	switch cfg.Encoder {
	case config.EncoderGStreamer:
		return openGStreamer(cfg)
	default:
		return openFFmpeg(cfg)
	}
}
