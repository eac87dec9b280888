package input

import (
	"context"
	"math"
	"time"
)

// Synthesizer produces a deterministic stream of raw samples for exercising
// the relay without physical hardware: the left stick traces a slow circle,
// the right stick a faster counter-circle, the triggers ramp, and one button
// bit walks across the mask each second.
type Synthesizer struct {
	deviceID uint8
	start    time.Time
}

// NewSynthesizer creates a synthesizer for the given logical device.
func NewSynthesizer(deviceID uint8) *Synthesizer {
	return &Synthesizer{deviceID: deviceID, start: time.Now()}
}

// SampleAt returns the sample for the given instant. The waveform is a pure
// function of elapsed time since construction, so replaying the same
// instants yields the same stream.
func (g *Synthesizer) SampleAt(at time.Time) Sample {
	phase := at.Sub(g.start).Seconds()

	leftAngle := 2 * math.Pi * 0.25 * phase
	rightAngle := -2 * math.Pi * 0.5 * phase
	ramp := math.Mod(phase, 4) / 4

	return Sample{
		DeviceID:     g.deviceID,
		Buttons:      1 << (uint(phase) % 16),
		LeftStickX:   axis(math.Cos(leftAngle)),
		LeftStickY:   axis(math.Sin(leftAngle)),
		RightStickX:  axis(0.5 * math.Cos(rightAngle)),
		RightStickY:  axis(0.5 * math.Sin(rightAngle)),
		LeftTrigger:  uint16(ramp * 65535),
		RightTrigger: uint16((1 - ramp) * 65535),
		DPadX:        0,
		DPadY:        0,
		Time:         at,
	}
}

// Run feeds samples to the normalizer at the given rate until the context
// is cancelled.
func (g *Synthesizer) Run(ctx context.Context, n *Normalizer, rate int) {
	if rate <= 0 {
		rate = 120
	}
	ticker := time.NewTicker(time.Second / time.Duration(rate))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			n.Disconnect(g.deviceID)
			return
		case at := <-ticker.C:
			n.Offer(g.SampleAt(at))
		}
	}
}

func axis(v float64) int16 {
	scaled := v * 32767
	if scaled > math.MaxInt16 {
		return math.MaxInt16
	}
	if scaled < math.MinInt16 {
		return math.MinInt16
	}
	return int16(scaled)
}
