package pipeline

import "time"

// PreBufferFrames is how many outbound frames are sent back-to-back before
// pacing kicks in, prefilling the device's jitter buffer.
const PreBufferFrames = 3

// Pacer enforces the steady-state send cadence described in the pacing
// rule: the first PreBufferFrames frames go out immediately; from the 4th
// frame on, a target timestamp advances by exactly frameDuration per call,
// and Wait sleeps the difference if called early.
type Pacer struct {
	frameDuration time.Duration
	sent          int
	target        time.Time
}

func NewPacer(frameDuration time.Duration) *Pacer {
	return &Pacer{frameDuration: frameDuration}
}

// Wait blocks, if needed, so that frames leave at a steady one-per-frameDuration
// rate after the initial burst.
func (p *Pacer) Wait() {
	p.sent++
	if p.sent <= PreBufferFrames {
		return
	}
	if p.target.IsZero() {
		p.target = time.Now()
		return
	}
	p.target = p.target.Add(p.frameDuration)
	if d := time.Until(p.target); d > 0 {
		time.Sleep(d)
	}
}
