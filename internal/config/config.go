package config

import (
	"fmt"
	"strings"
)

// Toggle is a three-way capture option matching the capture API's semantics:
// force on, force off, or let the backend pick per target kind.
type Toggle string

const (
	ToggleDefault Toggle = "default"
	ToggleAlways  Toggle = "always"
	ToggleNever   Toggle = "never"
)

// ParseToggle parses a user-supplied toggle value.
func ParseToggle(s string) (Toggle, error) {
	switch strings.ToLower(s) {
	case "", "default":
		return ToggleDefault, nil
	case "always":
		return ToggleAlways, nil
	case "never":
		return ToggleNever, nil
	default:
		return "", fmt.Errorf("invalid toggle value %q (use always, never or default)", s)
	}
}

// Encoder backend names.
const (
	EncoderFFmpeg    = "ffmpeg"
	EncoderGStreamer = "gstreamer"
)

// Recording holds the immutable parameters of one recording session.
// Width and Height must equal the resolved capture target's dimensions;
// the session constructor enforces that.
type Recording struct {
	Width      int    `json:"width" yaml:"width"`
	Height     int    `json:"height" yaml:"height"`
	OutputPath string `json:"output_path" yaml:"output_path"`
	Bitrate    int    `json:"bitrate" yaml:"bitrate"`       // bits per second
	FrameRate  int    `json:"frame_rate" yaml:"frame_rate"` // frames per second

	CursorCapture Toggle `json:"cursor_capture" yaml:"cursor_capture"`
	DrawBorder    Toggle `json:"draw_border" yaml:"draw_border"`
	Encoder       string `json:"encoder" yaml:"encoder"`
}

// Validate checks the recording parameters before any encoder is opened.
// A target with zero width or height is rejected here, never downstream.
func (r Recording) Validate() error {
	if r.Width <= 0 || r.Height <= 0 {
		return fmt.Errorf("invalid dimensions %dx%d: width and height must be positive", r.Width, r.Height)
	}
	if r.OutputPath == "" {
		return fmt.Errorf("output path must not be empty")
	}
	if r.Bitrate <= 0 {
		return fmt.Errorf("invalid bitrate %d: must be positive", r.Bitrate)
	}
	if r.FrameRate <= 0 {
		return fmt.Errorf("invalid frame rate %d: must be positive", r.FrameRate)
	}
	switch r.Encoder {
	case "", EncoderFFmpeg, EncoderGStreamer:
	default:
		return fmt.Errorf("unknown encoder %q (use %s or %s)", r.Encoder, EncoderFFmpeg, EncoderGStreamer)
	}
	return nil
}
