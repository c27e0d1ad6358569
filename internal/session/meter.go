package session

import "time"

// meterWindow is the measurement window for instantaneous fps.
const meterWindow = time.Second

// Meter is a rolling frames-per-second estimator. It is used from a single
// goroutine (the capture callback thread is both writer and reader), so no
// locking is needed.
type Meter struct {
	now func() time.Time

	start        time.Time
	windowStart  time.Time
	windowFrames uint64
	total        uint64
}

// NewMeter starts a meter with the wall clock.
func NewMeter() *Meter {
	return newMeterAt(time.Now)
}

func newMeterAt(now func() time.Time) *Meter {
	t := now()
	return &Meter{
		now:         now,
		start:       t,
		windowStart: t,
	}
}

// RecordFrame counts one frame against the current window.
func (m *Meter) RecordFrame() {
	m.total++
	m.windowFrames++
}

// Snapshot returns the elapsed recording time and the instantaneous fps over
// the current window. When the window has elapsed it is reset by this same
// call; keeping report and reset in one read avoids a second synchronization
// point between them.
func (m *Meter) Snapshot() (elapsed time.Duration, fps float64) {
	t := m.now()
	elapsed = t.Sub(m.start)

	windowElapsed := t.Sub(m.windowStart)
	if windowElapsed > 0 {
		fps = float64(m.windowFrames) / windowElapsed.Seconds()
	}

	if windowElapsed >= meterWindow {
		m.windowFrames = 0
		m.windowStart = t
	}
	return elapsed, fps
}

// Total returns the number of frames recorded since the session started.
func (m *Meter) Total() uint64 {
	return m.total
}
