package session

import "testing"

func TestStopSignal_DefaultUnset(t *testing.T) {
	s := NewStopSignal()
	if s.StopRequested() {
		t.Error("new signal must not report a stop")
	}
}

func TestStopSignal_RequestIsSticky(t *testing.T) {
	s := NewStopSignal()
	s.RequestStop()
	if !s.StopRequested() {
		t.Fatal("stop not observed after request")
	}

	// Further requests are no-ops, not errors.
	s.RequestStop()
	s.RequestStop()
	if !s.StopRequested() {
		t.Error("stop must stay set")
	}
}

func TestStopSignal_CrossGoroutineVisibility(t *testing.T) {
	s := NewStopSignal()

	done := make(chan struct{})
	go func() {
		s.RequestStop()
		close(done)
	}()
	<-done

	// The request returned before this read began, so it must be visible.
	if !s.StopRequested() {
		t.Error("stop requested on another goroutine not visible")
	}
}
