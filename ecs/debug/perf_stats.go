package debug

import "time"

// PerfStats keeps a fixed-size ring of recent frame times in milliseconds.
type PerfStats struct {
	history []float64
	index   int
	filled  int
}

func NewPerfStats(historyFrames int) *PerfStats {
	if historyFrames < 1 {
		historyFrames = 1
	}
	return &PerfStats{
		history: make([]float64, historyFrames),
	}
}

// Record adds one frame's delta time (seconds) to the ring.
func (ps *PerfStats) Record(deltaTime float64) {
	ps.history[ps.index] = deltaTime * 1000.0
	ps.index = (ps.index + 1) % len(ps.history)
	if ps.filled < len(ps.history) {
		ps.filled++
	}
}

// Average returns the mean frame time in milliseconds over the recorded
// window, or 0 when nothing has been recorded.
func (ps *PerfStats) Average() float64 {
	if ps.filled == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < ps.filled; i++ {
		sum += ps.history[i]
	}
	return sum / float64(ps.filled)
}

// Max returns the worst frame time in milliseconds in the window.
func (ps *PerfStats) Max() float64 {
	var max float64
	for i := 0; i < ps.filled; i++ {
		if ps.history[i] > max {
			max = ps.history[i]
		}
	}
	return max
}

// FPS returns the frames-per-second implied by the average frame time.
func (ps *PerfStats) FPS() float64 {
	avg := ps.Average()
	if avg == 0 {
		return 0
	}
	return 1000.0 / avg
}

// History returns the recorded frame times oldest-first.
func (ps *PerfStats) History() []float64 {
	out := make([]float64, 0, ps.filled)
	if ps.filled < len(ps.history) {
		out = append(out, ps.history[:ps.filled]...)
		return out
	}
	out = append(out, ps.history[ps.index:]...)
	out = append(out, ps.history[:ps.index]...)
	return out
}

// FrameTimer measures wall-clock deltas between successive frames.
type FrameTimer struct {
	lastFrameTime time.Time
}

func NewFrameTimer() *FrameTimer {
	return &FrameTimer{
		lastFrameTime: time.Now(),
	}
}

func (ft *FrameTimer) DeltaTime() float64 {
	now := time.Now()
	delta := now.Sub(ft.lastFrameTime).Seconds()
	ft.lastFrameTime = now
	return delta
}
