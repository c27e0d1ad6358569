package session

import (
	"math"
	"testing"
	"time"
)

// fakeClock steps a Meter through deterministic time.
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time {
	return c.t
}

func (c *fakeClock) advance(d time.Duration) {
	c.t = c.t.Add(d)
}

func TestMeter_ConvergesToConstantRate(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	m := newMeterAt(clock.now)

	const rate = 60
	interval := time.Second / rate

	var fps float64
	// Two seconds of frames at exactly 60/s.
	for i := 0; i < 2*rate; i++ {
		clock.advance(interval)
		m.RecordFrame()
		_, fps = m.Snapshot()
	}

	if math.Abs(fps-rate) > 1.0 {
		t.Errorf("fps = %.2f, want ~%d", fps, rate)
	}
}

func TestMeter_SnapshotResetsElapsedWindow(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	m := newMeterAt(clock.now)

	for i := 0; i < 30; i++ {
		m.RecordFrame()
	}
	clock.advance(time.Second)

	_, fps := m.Snapshot()
	if math.Abs(fps-30) > 0.01 {
		t.Errorf("fps over full window = %.2f, want 30", fps)
	}

	// Window crossed one second, so that snapshot must have reset it: frames
	// recorded afterwards are measured only against the new window.
	clock.advance(500 * time.Millisecond)
	for i := 0; i < 10; i++ {
		m.RecordFrame()
	}
	_, fps = m.Snapshot()
	if math.Abs(fps-20) > 0.01 {
		t.Errorf("fps after reset = %.2f, want 20 (10 frames / 0.5s)", fps)
	}
}

func TestMeter_SnapshotKeepsWindowUntilElapsed(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	m := newMeterAt(clock.now)

	m.RecordFrame()
	clock.advance(400 * time.Millisecond)
	m.Snapshot()

	// Under one second: the window must not have been reset.
	m.RecordFrame()
	clock.advance(100 * time.Millisecond)
	_, fps := m.Snapshot()
	if math.Abs(fps-4) > 0.01 {
		t.Errorf("fps = %.2f, want 4 (2 frames / 0.5s)", fps)
	}
}

func TestMeter_ElapsedIsTotalNotWindow(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	m := newMeterAt(clock.now)

	clock.advance(3 * time.Second)
	m.Snapshot()
	clock.advance(2 * time.Second)

	elapsed, _ := m.Snapshot()
	if elapsed != 5*time.Second {
		t.Errorf("elapsed = %v, want 5s", elapsed)
	}
}

func TestMeter_Total(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	m := newMeterAt(clock.now)

	for i := 0; i < 7; i++ {
		m.RecordFrame()
	}
	clock.advance(2 * time.Second)
	m.Snapshot() // resets the window, not the total

	if m.Total() != 7 {
		t.Errorf("Total() = %d, want 7", m.Total())
	}
}
