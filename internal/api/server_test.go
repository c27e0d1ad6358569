package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bryanchriswhite/screenreel/internal/session"
)

func TestHandleStatus(t *testing.T) {
	s := NewServer("Monitor 0 (primary)", "/tmp/out.mp4")
	s.ReportProgress(session.StateCapturing, session.Progress{
		Elapsed: 2500 * time.Millisecond,
		FPS:     59.5,
		Frames:  150,
	})

	req := httptest.NewRequest("GET", "/api/status", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var got Status
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if got.State != "capturing" {
		t.Errorf("state = %q, want capturing", got.State)
	}
	if got.Frames != 150 || got.FPS != 59.5 {
		t.Errorf("frames/fps = %d/%v, want 150/59.5", got.Frames, got.FPS)
	}
	if got.Target != "Monitor 0 (primary)" {
		t.Errorf("target = %q", got.Target)
	}
	if got.Elapsed != 2.5 {
		t.Errorf("elapsed = %v, want 2.5", got.Elapsed)
	}
}

func TestHandleStatus_InitialState(t *testing.T) {
	s := NewServer("Firefox", "out.mp4")

	req := httptest.NewRequest("GET", "/api/status", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	var got Status
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if got.State != "created" {
		t.Errorf("state = %q, want created", got.State)
	}
}

func TestReportState_NotifiesSubscribers(t *testing.T) {
	s := NewServer("Firefox", "out.mp4")
	ch := s.subscribe()
	defer s.unsubscribe(ch)

	s.ReportState(session.StateStopped)

	select {
	case got := <-ch:
		if got.State != "stopped" {
			t.Errorf("state = %q, want stopped", got.State)
		}
	case <-time.After(time.Second):
		t.Fatal("no update delivered to subscriber")
	}
}

func TestReportProgress_SkipsSlowSubscribers(t *testing.T) {
	s := NewServer("Firefox", "out.mp4")
	ch := s.subscribe()
	defer s.unsubscribe(ch)

	// Fill the buffer and keep reporting; must not block.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			s.ReportProgress(session.StateCapturing, session.Progress{Frames: uint64(i)})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("ReportProgress blocked on a slow subscriber")
	}
}

func TestHandleHealth(t *testing.T) {
	s := NewServer("Firefox", "out.mp4")

	req := httptest.NewRequest("GET", "/api/health", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}
