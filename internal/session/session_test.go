package session

import (
	"errors"
	"image"
	"testing"

	"github.com/bryanchriswhite/screenreel/internal/capture"
	"github.com/bryanchriswhite/screenreel/internal/config"
	"github.com/bryanchriswhite/screenreel/internal/encoder"
	"github.com/bryanchriswhite/screenreel/internal/target"
)

// fakeTarget is a resolved capture target without an X server behind it.
type fakeTarget struct {
	w, h int
}

func (f *fakeTarget) Kind() target.Kind { return target.KindMonitor }
func (f *fakeTarget) Width() int        { return f.w }
func (f *fakeTarget) Height() int       { return f.h }
func (f *fakeTarget) Label() string     { return "fake monitor" }

type fakeControl struct {
	stopped bool
}

func (c *fakeControl) Stop() { c.stopped = true }

type fakeHandle struct {
	done chan struct{}
}

func (h *fakeHandle) Stop()                 {}
func (h *fakeHandle) Done() <-chan struct{} { return h.done }

// fakeRuntime delivers frames from its own goroutine, sequentially, the way
// the X11 engine does. beforeFrame runs before frame i (0-based) is
// delivered; closeAfter fires the target-closed event after that many frames.
type fakeRuntime struct {
	frames      int
	beforeFrame func(i int)
	closeAfter  int

	delivered int
	began     bool
	cb        capture.Callbacks
}

func (r *fakeRuntime) Begin(tgt target.Target, opts capture.Options, cb capture.Callbacks) (capture.Handle, error) {
	r.began = true
	r.cb = cb
	h := &fakeHandle{done: make(chan struct{})}

	go func() {
		defer close(h.done)
		ctl := &fakeControl{}
		for i := 0; i < r.frames; i++ {
			if r.beforeFrame != nil {
				r.beforeFrame(i)
			}
			frame := image.NewRGBA(image.Rect(0, 0, tgt.Width(), tgt.Height()))
			r.delivered++
			if err := cb.OnFrameArrived(frame, ctl); err != nil {
				return
			}
			if ctl.stopped {
				return
			}
			if r.closeAfter > 0 && r.delivered == r.closeAfter {
				cb.OnClosed()
				return
			}
		}
	}()

	return h, nil
}

func testConfig(tgt target.Target) config.Recording {
	return config.Recording{
		Width:      tgt.Width(),
		Height:     tgt.Height(),
		OutputPath: "out.mp4",
		Bitrate:    15_000_000,
		FrameRate:  60,
	}
}

func newTestSession(t *testing.T, tgt target.Target, enc *fakeEncoder, opts Options) *Session {
	t.Helper()
	opts.OpenEncoder = func(config.Recording) (encoder.Encoder, error) {
		return enc, nil
	}
	s, err := New(tgt, testConfig(tgt), NewStopSignal(), opts)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return s
}

func TestSession_StopAfterFrame150(t *testing.T) {
	tgt := &fakeTarget{w: 1920, h: 1080}
	enc := &fakeEncoder{}

	var progress []Progress
	s := newTestSession(t, tgt, enc, Options{
		OnProgress: func(p Progress) { progress = append(progress, p) },
	})

	rt := &fakeRuntime{
		frames: 180,
		beforeFrame: func(i int) {
			if i == 150 {
				// Stop requested after 150 frames were handled; the 151st is
				// already on its way.
				s.Stop().RequestStop()
			}
		},
	}

	if err := s.Start(rt); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	// The session finalizes after the next frame following the request.
	if enc.submits != 151 {
		t.Errorf("encoder received %d frames, want 151", enc.submits)
	}
	if enc.finalizes != 1 {
		t.Errorf("encoder finalized %d times, want exactly 1", enc.finalizes)
	}
	if s.State() != StateStopped {
		t.Errorf("state = %s, want stopped", s.State())
	}
	if rt.delivered != 151 {
		t.Errorf("runtime delivered %d frames after stop, want 151", rt.delivered)
	}

	if len(progress) != 151 {
		t.Fatalf("got %d progress reports, want 151", len(progress))
	}
	last := progress[len(progress)-1]
	if last.Frames != 151 {
		t.Errorf("last progress frame count = %d, want 151", last.Frames)
	}
}

func TestSession_SinkOpenFailure(t *testing.T) {
	tgt := &fakeTarget{w: 640, h: 480}
	openErr := errors.New("no such directory")

	s, err := New(tgt, testConfig(tgt), nil, Options{
		OpenEncoder: func(config.Recording) (encoder.Encoder, error) {
			return nil, openErr
		},
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	rt := &fakeRuntime{frames: 10}
	err = s.Start(rt)

	var soe *SinkOpenError
	if !errors.As(err, &soe) {
		t.Fatalf("Start error = %v, want SinkOpenError", err)
	}
	if !errors.Is(err, openErr) {
		t.Error("SinkOpenError should wrap the underlying open error")
	}
	if rt.began {
		t.Error("capture must not begin when the sink fails to open")
	}
	if rt.delivered != 0 {
		t.Errorf("%d frames delivered, want 0", rt.delivered)
	}
	if s.State() != StateFailed {
		t.Errorf("state = %s, want failed", s.State())
	}
}

func TestSession_SubmitFailureIsFatal(t *testing.T) {
	tgt := &fakeTarget{w: 640, h: 480}
	enc := &fakeEncoder{}
	s := newTestSession(t, tgt, enc, Options{})

	rt := &fakeRuntime{
		frames: 100,
		beforeFrame: func(i int) {
			if i == 3 {
				enc.submitErr = &encoder.SubmitError{Err: errors.New("encoder rejected frame")}
			}
		},
	}

	err := s.Start(rt)
	if err == nil {
		t.Fatal("Start should propagate the submit failure")
	}
	var se *encoder.SubmitError
	if !errors.As(err, &se) {
		t.Errorf("error %v does not unwrap to SubmitError", err)
	}

	if s.State() != StateFailed {
		t.Errorf("state = %s, want failed", s.State())
	}
	// Best-effort finalize happened exactly once, and delivery stopped.
	if enc.finalizes != 1 {
		t.Errorf("encoder finalized %d times, want exactly 1", enc.finalizes)
	}
	if rt.delivered != 4 {
		t.Errorf("runtime delivered %d frames, want 4 (no retries)", rt.delivered)
	}
}

func TestSession_TargetClosedFinalizesLikeStop(t *testing.T) {
	tgt := &fakeTarget{w: 800, h: 600}
	enc := &fakeEncoder{}
	s := newTestSession(t, tgt, enc, Options{})

	rt := &fakeRuntime{frames: 100, closeAfter: 5}

	if err := s.Start(rt); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if enc.submits != 5 {
		t.Errorf("encoder received %d frames, want 5", enc.submits)
	}
	if enc.finalizes != 1 {
		t.Errorf("encoder finalized %d times, want exactly 1", enc.finalizes)
	}
	if s.State() != StateStopped {
		t.Errorf("state = %s, want stopped", s.State())
	}
}

func TestSession_TerminalStateIgnoresLateEvents(t *testing.T) {
	tgt := &fakeTarget{w: 320, h: 240}
	enc := &fakeEncoder{}
	s := newTestSession(t, tgt, enc, Options{})

	s.Stop().RequestStop()
	rt := &fakeRuntime{frames: 10}
	if err := s.Start(rt); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if s.State() != StateStopped {
		t.Fatalf("state = %s, want stopped", s.State())
	}

	// Late events from a confused runtime must be ignored, loudly but safely.
	submitsBefore := enc.submits
	if err := rt.cb.OnFrameArrived(image.NewRGBA(image.Rect(0, 0, 320, 240)), &fakeControl{}); err != nil {
		t.Errorf("late frame event returned error: %v", err)
	}
	rt.cb.OnClosed()
	rt.cb.OnClosed()

	if enc.submits != submitsBefore {
		t.Error("late frame must not reach the encoder")
	}
	if enc.finalizes != 1 {
		t.Errorf("encoder finalized %d times after late events, want exactly 1", enc.finalizes)
	}
}

func TestSession_FinalizeFailureOnStop(t *testing.T) {
	tgt := &fakeTarget{w: 320, h: 240}
	enc := &fakeEncoder{finalizeErr: errors.New("mux trailer write failed")}
	s := newTestSession(t, tgt, enc, Options{})

	s.Stop().RequestStop()
	err := s.Start(&fakeRuntime{frames: 10})
	if err == nil {
		t.Fatal("Start should surface the finalize failure")
	}
	if s.State() != StateFailed {
		t.Errorf("state = %s, want failed", s.State())
	}
}

func TestNew_RejectsDimensionMismatch(t *testing.T) {
	tgt := &fakeTarget{w: 1920, h: 1080}
	cfg := testConfig(tgt)
	cfg.Width = 1280

	if _, err := New(tgt, cfg, nil, Options{}); err == nil {
		t.Error("New must reject dimensions that do not match the target")
	}
}

func TestNew_RejectsZeroDimensionTarget(t *testing.T) {
	tgt := &fakeTarget{w: 0, h: 1080}

	if _, err := New(tgt, testConfig(tgt), nil, Options{}); err == nil {
		t.Error("New must reject a zero-width target before a sink is opened")
	}
}

func TestNew_NilStopSignalGetsPrivateOne(t *testing.T) {
	tgt := &fakeTarget{w: 64, h: 64}
	s, err := New(tgt, testConfig(tgt), nil, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if s.Stop() == nil {
		t.Error("session must create a stop signal when given none")
	}
}
