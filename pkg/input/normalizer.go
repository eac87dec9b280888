package input

import (
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ronojak/Relay-App/pkg/protocol"
)

const (
	// DefaultStickDeadzone is the stick deadzone as a fraction of full scale.
	DefaultStickDeadzone = 0.08

	// DefaultTriggerDeadzone is the trigger deadzone as a fraction of full scale.
	DefaultTriggerDeadzone = 0.05

	// DefaultMinEmitInterval caps emission at 120Hz.
	DefaultMinEmitInterval = time.Second / 120

	// DefaultDuplicateWindow is the short window within which an identical
	// repeated state is discarded.
	DefaultDuplicateWindow = 5 * time.Millisecond

	// DefaultStickChangeDelta is ~1.5% of the stick axis range.
	DefaultStickChangeDelta = 492

	// DefaultTriggerChangeDelta is ~0.3% of the trigger range.
	DefaultTriggerChangeDelta = 196

	// DefaultOutputBuffer is the capacity of the snapshot channel.
	DefaultOutputBuffer = 64
)

// Config controls normalization thresholds and emission pacing.
type Config struct {
	// StickDeadzone is the stick deadzone fraction (0..1).
	StickDeadzone float64

	// TriggerDeadzone is the trigger deadzone fraction (0..1).
	TriggerDeadzone float64

	// MinEmitInterval is the minimum spacing between emitted snapshots.
	MinEmitInterval time.Duration

	// DuplicateWindow discards an identical state repeated within it.
	DuplicateWindow time.Duration

	// StickChangeDelta is the per-axis change below which a stick movement
	// is not significant.
	StickChangeDelta int16

	// TriggerChangeDelta is the change below which a trigger movement is
	// not significant.
	TriggerChangeDelta uint16

	// OutputBuffer is the snapshot channel capacity. When full, the oldest
	// pending snapshot is evicted.
	OutputBuffer int

	// Logger receives structured log output. Defaults to slog.Default.
	Logger *slog.Logger
}

// DefaultConfig returns the default normalizer configuration.
func DefaultConfig() *Config {
	return &Config{
		StickDeadzone:      DefaultStickDeadzone,
		TriggerDeadzone:    DefaultTriggerDeadzone,
		MinEmitInterval:    DefaultMinEmitInterval,
		DuplicateWindow:    DefaultDuplicateWindow,
		StickChangeDelta:   DefaultStickChangeDelta,
		TriggerChangeDelta: DefaultTriggerChangeDelta,
		OutputBuffer:       DefaultOutputBuffer,
	}
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	if c == nil {
		return DefaultConfig()
	}
	clone := *c
	return &clone
}

func (c *Config) withDefaults() *Config {
	cfg := c.Clone()
	if cfg.StickDeadzone <= 0 {
		cfg.StickDeadzone = DefaultStickDeadzone
	}
	if cfg.TriggerDeadzone <= 0 {
		cfg.TriggerDeadzone = DefaultTriggerDeadzone
	}
	if cfg.MinEmitInterval <= 0 {
		cfg.MinEmitInterval = DefaultMinEmitInterval
	}
	if cfg.DuplicateWindow <= 0 {
		cfg.DuplicateWindow = DefaultDuplicateWindow
	}
	if cfg.StickChangeDelta <= 0 {
		cfg.StickChangeDelta = DefaultStickChangeDelta
	}
	if cfg.TriggerChangeDelta == 0 {
		cfg.TriggerChangeDelta = DefaultTriggerChangeDelta
	}
	if cfg.OutputBuffer <= 0 {
		cfg.OutputBuffer = DefaultOutputBuffer
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return cfg
}

// Stats is a snapshot of normalizer counters.
type Stats struct {
	Emitted    uint64 // Snapshots delivered to the output channel
	Suppressed uint64 // Samples discarded by rate/change/duplicate rules
	Evicted    uint64 // Pending snapshots evicted by a slow consumer
}

// Normalizer turns raw samples into canonical controller-state snapshots.
// Offer never blocks: suppressed samples are discarded, and when the output
// channel is full the oldest pending snapshot is evicted first.
type Normalizer struct {
	cfg    *Config
	logger *slog.Logger
	out    chan protocol.ControllerState

	// now is the clock, injectable for tests.
	now func() time.Time

	mu       sync.Mutex
	last     protocol.ControllerState
	hasLast  bool
	lastEmit time.Time
	closed   bool

	emitted    atomic.Uint64
	suppressed atomic.Uint64
	evicted    atomic.Uint64
}

// NewNormalizer creates a normalizer. A nil config uses DefaultConfig.
func NewNormalizer(config *Config) *Normalizer {
	cfg := config.withDefaults()
	return &Normalizer{
		cfg:    cfg,
		logger: cfg.Logger,
		out:    make(chan protocol.ControllerState, cfg.OutputBuffer),
		now:    time.Now,
	}
}

// States returns the output stream of emitted snapshots. The channel is
// closed by Close.
func (n *Normalizer) States() <-chan protocol.ControllerState {
	return n.out
}

// Offer processes one raw sample. Deadzones apply first, then the rate
// ceiling, then duplicate suppression, then change detection. Samples that
// fail a gate are discarded without being counted as drops.
func (n *Normalizer) Offer(sample Sample) {
	st := n.normalize(sample)

	at := sample.Time
	if at.IsZero() {
		at = n.now()
	}
	st.TimestampMicros = uint64(at.UnixMicro())

	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return
	}

	if n.hasLast {
		since := at.Sub(n.lastEmit)
		if since < n.cfg.MinEmitInterval {
			n.suppressed.Add(1)
			return
		}
		if since < n.cfg.DuplicateWindow && equalStates(&n.last, &st) {
			n.suppressed.Add(1)
			return
		}
		if !n.significantChange(&n.last, &st) {
			n.suppressed.Add(1)
			return
		}
	}

	n.record(st, at)
	n.emit(st)
}

// Disconnect emits one reset snapshot for the device, bypassing every
// suppression gate, so the remote side settles on a known-safe state.
func (n *Normalizer) Disconnect(deviceID uint8) {
	at := n.now()
	st := protocol.ControllerState{
		DeviceID:        deviceID,
		TimestampMicros: uint64(at.UnixMicro()),
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return
	}

	n.logger.Info("device disconnected, emitting reset state", "device", deviceID)
	n.record(st, at)
	n.emit(st)
}

// Close closes the output channel. Further Offer calls are no-ops.
func (n *Normalizer) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return
	}
	n.closed = true
	close(n.out)
}

// Stats returns a snapshot of the normalizer counters.
func (n *Normalizer) Stats() Stats {
	return Stats{
		Emitted:    n.emitted.Load(),
		Suppressed: n.suppressed.Load(),
		Evicted:    n.evicted.Load(),
	}
}

// record updates the last-emitted reference. Caller holds mu.
func (n *Normalizer) record(st protocol.ControllerState, at time.Time) {
	n.last = st
	n.hasLast = true
	n.lastEmit = at
}

// emit delivers a snapshot to the output channel, evicting the oldest
// pending one when the consumer lags. Caller holds mu.
func (n *Normalizer) emit(st protocol.ControllerState) {
	for {
		select {
		case n.out <- st:
			n.emitted.Add(1)
			return
		default:
		}
		select {
		case <-n.out:
			n.evicted.Add(1)
		default:
		}
	}
}

// normalize applies deadzones and builds the canonical snapshot.
func (n *Normalizer) normalize(s Sample) protocol.ControllerState {
	st := protocol.ControllerState{
		DeviceID: s.DeviceID,
		Buttons:  s.Buttons,
		LeftStick: protocol.Vec2{
			X: remapStick(s.LeftStickX, n.cfg.StickDeadzone),
			Y: remapStick(s.LeftStickY, n.cfg.StickDeadzone),
		},
		RightStick: protocol.Vec2{
			X: remapStick(s.RightStickX, n.cfg.StickDeadzone),
			Y: remapStick(s.RightStickY, n.cfg.StickDeadzone),
		},
		LeftTrigger:  remapTrigger(s.LeftTrigger, n.cfg.TriggerDeadzone),
		RightTrigger: remapTrigger(s.RightTrigger, n.cfg.TriggerDeadzone),
		DPad:         protocol.Vec2{X: s.DPadX, Y: s.DPadY},
	}
	if s.HasGyro {
		st.Flags |= protocol.FlagGyro
		st.Gyro = protocol.Vec3{X: s.GyroX, Y: s.GyroY, Z: s.GyroZ}
	}
	if s.HasAccel {
		st.Flags |= protocol.FlagAccel
		st.Accel = protocol.Vec3{X: s.AccelX, Y: s.AccelY, Z: s.AccelZ}
	}
	return st
}

// significantChange reports whether next differs enough from prev to be
// worth a frame: any button bit, a stick axis beyond the stick delta, a
// trigger beyond the trigger delta, the d-pad at all, or a different device
// or sensor set.
func (n *Normalizer) significantChange(prev, next *protocol.ControllerState) bool {
	if prev.DeviceID != next.DeviceID || prev.Flags != next.Flags {
		return true
	}
	if prev.Buttons != next.Buttons {
		return true
	}
	if prev.DPad != next.DPad {
		return true
	}
	d := int32(n.cfg.StickChangeDelta)
	if absDelta(prev.LeftStick.X, next.LeftStick.X) > d ||
		absDelta(prev.LeftStick.Y, next.LeftStick.Y) > d ||
		absDelta(prev.RightStick.X, next.RightStick.X) > d ||
		absDelta(prev.RightStick.Y, next.RightStick.Y) > d {
		return true
	}
	t := int32(n.cfg.TriggerChangeDelta)
	if absDeltaU(prev.LeftTrigger, next.LeftTrigger) > t ||
		absDeltaU(prev.RightTrigger, next.RightTrigger) > t {
		return true
	}
	return false
}

// equalStates compares everything except the capture timestamp.
func equalStates(a, b *protocol.ControllerState) bool {
	return a.DeviceID == b.DeviceID &&
		a.Flags == b.Flags &&
		a.Buttons == b.Buttons &&
		a.LeftStick == b.LeftStick &&
		a.RightStick == b.RightStick &&
		a.LeftTrigger == b.LeftTrigger &&
		a.RightTrigger == b.RightTrigger &&
		a.DPad == b.DPad &&
		a.Gyro == b.Gyro &&
		a.Accel == b.Accel
}

func absDelta(a, b int16) int32 {
	d := int32(a) - int32(b)
	if d < 0 {
		d = -d
	}
	return d
}

func absDeltaU(a, b uint16) int32 {
	d := int32(a) - int32(b)
	if d < 0 {
		d = -d
	}
	return d
}

// remapStick clamps values inside the deadzone to zero and linearly remaps
// the remainder so the usable range still spans the full output range.
func remapStick(v int16, deadzone float64) int16 {
	const full = 32767.0
	f := float64(v)
	mag := math.Abs(f)
	threshold := deadzone * full
	if mag <= threshold {
		return 0
	}
	scaled := (mag - threshold) / (full - threshold) * full
	if f < 0 {
		scaled = -scaled
	}
	if scaled > math.MaxInt16 {
		return math.MaxInt16
	}
	if scaled < math.MinInt16 {
		return math.MinInt16
	}
	return int16(math.Round(scaled))
}

// remapTrigger applies the trigger deadzone and rescales to 0..65535.
func remapTrigger(v uint16, deadzone float64) uint16 {
	const full = 65535.0
	f := float64(v)
	threshold := deadzone * full
	if f <= threshold {
		return 0
	}
	scaled := (f - threshold) / (full - threshold) * full
	if scaled > math.MaxUint16 {
		return math.MaxUint16
	}
	return uint16(math.Round(scaled))
}
