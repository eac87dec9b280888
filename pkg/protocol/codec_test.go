package protocol

import (
	"errors"
	"testing"
)

func sampleState() ControllerState {
	return ControllerState{
		DeviceID:        3,
		Buttons:         0b0000_1010_0101_0001,
		LeftStick:       Vec2{X: -32768, Y: 32767},
		RightStick:      Vec2{X: 1200, Y: -4500},
		LeftTrigger:     65535,
		RightTrigger:    300,
		DPad:            Vec2{X: -32768, Y: 0},
		TimestampMicros: 1_724_500_000_123_456,
	}
}

func sampleSensorState() ControllerState {
	s := sampleState()
	s.Flags = FlagGyro | FlagAccel
	s.Gyro = Vec3{X: -100, Y: 200, Z: -300}
	s.Accel = Vec3{X: 400, Y: -500, Z: 600}
	return s
}

func TestStateRoundTrip(t *testing.T) {
	tests := []struct {
		name     string
		state    ControllerState
		seq      uint32
		wantSize int
	}{
		{"no_sensors", sampleState(), 1, StateSize},
		{"with_sensors", sampleSensorState(), 42, StateSizeSensors},
		{"zero_state", ControllerState{}, 0, StateSize},
		{"max_seq", sampleState(), 0xFFFFFFFF, StateSize},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			frame := EncodeState(&tc.state, tc.seq)

			if len(frame) != EnvelopeSize+tc.wantSize {
				t.Fatalf("frame length = %d, want %d", len(frame), EnvelopeSize+tc.wantSize)
			}

			env, decoded, err := DecodeStateFrame(frame)
			if err != nil {
				t.Fatalf("DecodeStateFrame() error = %v", err)
			}

			if env.Type != MsgControllerState {
				t.Errorf("envelope type = %v, want ControllerState", env.Type)
			}
			if env.Version != Version {
				t.Errorf("envelope version = %d, want %d", env.Version, Version)
			}
			if env.Seq != tc.seq {
				t.Errorf("envelope seq = %d, want %d", env.Seq, tc.seq)
			}
			if int(env.PayloadLength) != tc.wantSize {
				t.Errorf("envelope payloadLength = %d, want %d", env.PayloadLength, tc.wantSize)
			}
			if env.TimestampMicros != tc.state.TimestampMicros {
				t.Errorf("envelope timestamp = %d, want %d", env.TimestampMicros, tc.state.TimestampMicros)
			}

			if decoded != tc.state {
				t.Errorf("decoded state = %+v, want %+v", decoded, tc.state)
			}
		})
	}
}

func TestPayloadLengthMatchesEncoding(t *testing.T) {
	for _, s := range []ControllerState{sampleState(), sampleSensorState()} {
		frame := EncodeState(&s, 7)
		env, payload, err := DecodeFrame(frame)
		if err != nil {
			t.Fatalf("DecodeFrame() error = %v", err)
		}
		if int(env.PayloadLength) != len(s.EncodePayload()) {
			t.Errorf("payloadLength = %d, want %d", env.PayloadLength, len(s.EncodePayload()))
		}
		if len(payload) != int(env.PayloadLength) {
			t.Errorf("payload bytes = %d, want %d", len(payload), env.PayloadLength)
		}
	}
}

func TestDecodeEnvelopeErrors(t *testing.T) {
	valid := EncodeState(&ControllerState{}, 1)

	corrupt := func(mutate func([]byte)) []byte {
		b := make([]byte, len(valid))
		copy(b, valid)
		mutate(b)
		return b
	}

	tests := []struct {
		name    string
		data    []byte
		wantErr error
	}{
		{"empty", nil, ErrShortHeader},
		{"short_header", valid[:EnvelopeSize-1], ErrShortHeader},
		{"bad_version", corrupt(func(b []byte) { b[1] = 9 }), ErrVersionMismatch},
		{"zero_type", corrupt(func(b []byte) { b[0] = 0x00 }), ErrUnknownMessageType},
		{"high_type", corrupt(func(b []byte) { b[0] = 0x7F }), ErrUnknownMessageType},
		{"oversized_payload", corrupt(func(b []byte) { b[2] = 0xFF; b[3] = 0xFF }), ErrFrameTooLarge},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DecodeEnvelope(tc.data)
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("DecodeEnvelope() error = %v, want %v", err, tc.wantErr)
			}
			if !errors.Is(err, ErrMalformedFrame) {
				t.Errorf("error %v does not wrap ErrMalformedFrame", err)
			}
		})
	}
}

func TestDecodeFramePayloadMismatch(t *testing.T) {
	valid := EncodeState(&ControllerState{}, 1)

	// Truncated payload.
	if _, _, err := DecodeFrame(valid[:len(valid)-4]); !errors.Is(err, ErrShortPayload) {
		t.Errorf("truncated frame error = %v, want ErrShortPayload", err)
	}

	// Trailing garbage beyond the declared length.
	padded := append(append([]byte{}, valid...), 0xAA, 0xBB)
	if _, _, err := DecodeFrame(padded); !errors.Is(err, ErrPayloadLengthMismatch) {
		t.Errorf("padded frame error = %v, want ErrPayloadLengthMismatch", err)
	}
}

func TestDecodeStateSizes(t *testing.T) {
	for _, n := range []int{0, 1, 19, 20, 25, 27, 37, 39, 64} {
		if _, err := DecodeState(make([]byte, n)); !errors.Is(err, ErrBadStateSize) {
			t.Errorf("DecodeState(%d bytes) error = %v, want ErrBadStateSize", n, err)
		}
	}

	// A 38-byte payload whose flags do not declare both sensors is rejected,
	// as is a 26-byte payload declaring sensors.
	withSensors := sampleSensorState()
	sensor := withSensors.EncodePayload()
	sensor[1] = FlagGyro
	if _, err := DecodeState(sensor); !errors.Is(err, ErrBadStateSize) {
		t.Errorf("partial sensor flags error = %v, want ErrBadStateSize", err)
	}

	plain := sampleState()
	base := plain.EncodePayload()
	base[1] = FlagGyro | FlagAccel
	if _, err := DecodeState(base); !errors.Is(err, ErrBadStateSize) {
		t.Errorf("sensor flags without data error = %v, want ErrBadStateSize", err)
	}
}

func TestFrameLen(t *testing.T) {
	state := sampleState()
	frame := EncodeState(&state, 5)

	// Only the envelope bytes are needed to learn the full frame length.
	n, err := FrameLen(frame[:EnvelopeSize])
	if err != nil {
		t.Fatalf("FrameLen() error = %v", err)
	}
	if n != len(frame) {
		t.Errorf("FrameLen() = %d, want %d", n, len(frame))
	}

	if _, err := FrameLen(frame[:EnvelopeSize-1]); !errors.Is(err, ErrShortHeader) {
		t.Errorf("FrameLen(short) error = %v, want ErrShortHeader", err)
	}
}

func TestEncodePing(t *testing.T) {
	data := EncodePing(9, 123456)
	env, payload, err := DecodeFrame(data)
	if err != nil {
		t.Fatalf("DecodeFrame() error = %v", err)
	}
	if env.Type != MsgPing {
		t.Errorf("type = %v, want Ping", env.Type)
	}
	if len(payload) != 0 {
		t.Errorf("ping payload = %d bytes, want 0", len(payload))
	}
	if env.Seq != 9 || env.TimestampMicros != 123456 {
		t.Errorf("envelope = %+v", env)
	}
}

func TestLittleEndianLayout(t *testing.T) {
	s := ControllerState{
		DeviceID:        1,
		Buttons:         0x0201,
		LeftStick:       Vec2{X: 0x0403, Y: 0x0605},
		TimestampMicros: 0x1122334455667788,
	}
	frame := EncodeState(&s, 0x0A0B0C0D)

	// payloadLength at offset 2, little-endian.
	if frame[2] != StateSize || frame[3] != 0 {
		t.Errorf("payloadLength bytes = %02x %02x", frame[2], frame[3])
	}
	// sequence at offset 4.
	if frame[4] != 0x0D || frame[5] != 0x0C || frame[6] != 0x0B || frame[7] != 0x0A {
		t.Errorf("sequence bytes = % 02x", frame[4:8])
	}
	// timestamp at offset 8.
	if frame[8] != 0x88 || frame[15] != 0x11 {
		t.Errorf("timestamp bytes = % 02x", frame[8:16])
	}
	// buttons at payload offset 2 (frame offset 18).
	if frame[18] != 0x01 || frame[19] != 0x02 {
		t.Errorf("buttons bytes = %02x %02x", frame[18], frame[19])
	}
	// left stick X at payload offset 4.
	if frame[20] != 0x03 || frame[21] != 0x04 {
		t.Errorf("leftStick.X bytes = %02x %02x", frame[20], frame[21])
	}
}

func TestMessageTypeString(t *testing.T) {
	tests := []struct {
		mt   MessageType
		want string
	}{
		{MsgControllerState, "ControllerState"},
		{MsgPing, "Ping"},
		{MsgAuthChallenge, "AuthChallenge"},
		{MsgAuthResponse, "AuthResponse"},
		{MessageType(0xEE), "Unknown"},
	}
	for _, tc := range tests {
		if got := tc.mt.String(); got != tc.want {
			t.Errorf("MessageType(%d).String() = %q, want %q", tc.mt, got, tc.want)
		}
	}
}
