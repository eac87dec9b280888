package protocol

import (
	"errors"
	"testing"
)

// FuzzDecodeFrame tests that decoding arbitrary bytes doesn't panic and only
// ever fails with a malformed-frame error.
func FuzzDecodeFrame(f *testing.F) {
	// Seed with valid frames
	state := ControllerState{DeviceID: 1, Buttons: 0x0001}
	f.Add(EncodeState(&state, 1))

	sensors := ControllerState{Flags: FlagGyro | FlagAccel, Gyro: Vec3{X: 1}}
	f.Add(EncodeState(&sensors, 2))

	f.Add(EncodePing(3, 1000))
	f.Add([]byte{})
	f.Add([]byte{0x01, 0x01})

	f.Fuzz(func(t *testing.T, data []byte) {
		_, _, err := DecodeFrame(data)
		if err != nil && !errors.Is(err, ErrMalformedFrame) {
			t.Errorf("DecodeFrame() error = %v, not a malformed-frame error", err)
		}
	})
}

// FuzzDecodeState tests that state decoding of arbitrary payloads doesn't
// panic.
func FuzzDecodeState(f *testing.F) {
	state := ControllerState{DeviceID: 1, LeftStick: Vec2{X: -1000}}
	f.Add(state.EncodePayload())

	sensors := ControllerState{Flags: FlagGyro | FlagAccel}
	f.Add(sensors.EncodePayload())

	f.Fuzz(func(t *testing.T, data []byte) {
		s, err := DecodeState(data)
		if err != nil {
			return
		}
		// A successful decode must re-encode to the same bytes.
		out := s.EncodePayload()
		if len(out) != len(data) {
			t.Errorf("re-encode length = %d, want %d", len(out), len(data))
		}
	})
}

// FuzzFrameLen tests the header-only validator against arbitrary prefixes.
func FuzzFrameLen(f *testing.F) {
	state := ControllerState{}
	f.Add(EncodeState(&state, 1)[:EnvelopeSize])

	f.Fuzz(func(t *testing.T, data []byte) {
		n, err := FrameLen(data)
		if err != nil {
			return
		}
		if n < EnvelopeSize || n > MaxFrameSize {
			t.Errorf("FrameLen() = %d, outside [%d, %d]", n, EnvelopeSize, MaxFrameSize)
		}
	})
}
