package target

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/xgb/xproto"
)

// Kind distinguishes the two capture target variants.
type Kind int

const (
	KindWindow Kind = iota
	KindMonitor
)

func (k Kind) String() string {
	switch k {
	case KindWindow:
		return "window"
	case KindMonitor:
		return "monitor"
	default:
		return "unknown"
	}
}

// Target is an enumerable handle to a window or a monitor. It is resolved
// once before a session starts and is immutable for the session's lifetime;
// the recorded dimensions are the ones the encoder is opened with.
type Target interface {
	Kind() Kind
	Width() int
	Height() int
	Label() string
}

// Window is a capture target backed by an X11 window.
type Window struct {
	ID    xproto.Window
	Title string

	width  int
	height int
}

func (w *Window) Kind() Kind  { return KindWindow }
func (w *Window) Width() int  { return w.width }
func (w *Window) Height() int { return w.height }
func (w *Window) Label() string {
	return fmt.Sprintf("window %q (%dx%d)", w.Title, w.width, w.height)
}

// Monitor is a capture target backed by a physical screen.
type Monitor struct {
	Index   int
	X       int
	Y       int
	Primary bool

	width  int
	height int
}

func (m *Monitor) Kind() Kind  { return KindMonitor }
func (m *Monitor) Width() int  { return m.width }
func (m *Monitor) Height() int { return m.height }
func (m *Monitor) Label() string {
	if m.Primary {
		return fmt.Sprintf("primary monitor (%dx%d)", m.width, m.height)
	}
	return fmt.Sprintf("monitor %d (%dx%d)", m.Index, m.width, m.height)
}

// NotFoundError reports a failed target lookup. It is terminal: resolution
// happens before a session exists and is never retried.
type NotFoundError struct {
	Kind  Kind
	Query string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no %s matching %q", e.Kind, e.Query)
}

// matchesTitle reports whether a window title matches a user query.
// Matching is a case-insensitive substring test.
func matchesTitle(title, query string) bool {
	return strings.Contains(strings.ToLower(title), strings.ToLower(query))
}
