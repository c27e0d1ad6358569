package target

import (
	"errors"
	"testing"
)

func TestMatchesTitle(t *testing.T) {
	tests := []struct {
		title string
		query string
		want  bool
	}{
		{"Mozilla Firefox", "firefox", true},
		{"Mozilla Firefox", "Firefox", true},
		{"Mozilla Firefox", "chrome", false},
		{"terminal — vim", "vim", true},
		{"anything", "", true},
		{"", "x", false},
	}

	for _, tt := range tests {
		if got := matchesTitle(tt.title, tt.query); got != tt.want {
			t.Errorf("matchesTitle(%q, %q) = %v, want %v", tt.title, tt.query, got, tt.want)
		}
	}
}

func TestKind_String(t *testing.T) {
	if KindWindow.String() != "window" {
		t.Errorf("KindWindow.String() = %q", KindWindow.String())
	}
	if KindMonitor.String() != "monitor" {
		t.Errorf("KindMonitor.String() = %q", KindMonitor.String())
	}
}

func TestLabels(t *testing.T) {
	w := &Window{Title: "editor", width: 800, height: 600}
	if w.Label() != `window "editor" (800x600)` {
		t.Errorf("unexpected window label: %s", w.Label())
	}

	m := &Monitor{Index: 1, width: 1920, height: 1080}
	if m.Label() != "monitor 1 (1920x1080)" {
		t.Errorf("unexpected monitor label: %s", m.Label())
	}

	m.Primary = true
	if m.Label() != "primary monitor (1920x1080)" {
		t.Errorf("unexpected primary monitor label: %s", m.Label())
	}
}

func TestNotFoundError(t *testing.T) {
	err := error(&NotFoundError{Kind: KindWindow, Query: "slack"})

	var nfe *NotFoundError
	if !errors.As(err, &nfe) {
		t.Fatal("errors.As failed for NotFoundError")
	}
	if err.Error() != `no window matching "slack"` {
		t.Errorf("unexpected message: %s", err.Error())
	}
}
