package protocol

// Controller state payload sizes. The size is fully determined by the flags
// byte: 26 bytes without sensor data, 38 bytes when both sensor flag bits
// are set. Partial sensor payloads do not exist on the wire.
const (
	// StateSize is the payload size without sensor data.
	StateSize = 26

	// StateSizeSensors is the payload size with gyro and accel appended.
	StateSizeSensors = 38

	// stateReservedBytes pads the base payload to StateSize. Encoded as
	// zero, ignored on decode.
	stateReservedBytes = 6
)

// Sensor presence flags in ControllerState.Flags.
const (
	FlagGyro  uint8 = 1 << 0 // Gyroscope data present
	FlagAccel uint8 = 1 << 1 // Accelerometer data present
)

// Vec2 is a pair of signed 16-bit axis values.
type Vec2 struct {
	X, Y int16
}

// Vec3 is a triple of signed 16-bit sensor components.
type Vec3 struct {
	X, Y, Z int16
}

// ControllerState is a snapshot of a single logical input device at a point
// in time. It is produced fresh per input sample and is immutable once
// handed to the codec.
//
// Stick axes are post-deadzone, full range -32768..32767. Triggers are
// post-deadzone, 0..65535. The d-pad is an analog-style representation of an
// otherwise discrete control. Gyro and Accel are meaningful only when both
// sensor flags are set.
type ControllerState struct {
	DeviceID uint8  // Logical device within this process, not globally stable
	Flags    uint8  // Sensor presence bits
	Buttons  uint16 // One bit per logical button, stable assignment

	LeftStick  Vec2
	RightStick Vec2

	LeftTrigger  uint16
	RightTrigger uint16

	DPad Vec2

	Gyro  Vec3
	Accel Vec3

	// TimestampMicros is wall-clock microseconds at capture time. It rides
	// in the envelope, not the payload.
	TimestampMicros uint64
}

// HasSensors reports whether the state carries sensor data on the wire.
// Both flags must be set; a single bit encodes no sensor payload.
func (s *ControllerState) HasSensors() bool {
	return s.Flags&FlagGyro != 0 && s.Flags&FlagAccel != 0
}

// PayloadSize returns the exact serialized payload size for this state.
func (s *ControllerState) PayloadSize() int {
	if s.HasSensors() {
		return StateSizeSensors
	}
	return StateSize
}

// EncodePayloadTo encodes the state payload using the provided encoder.
func (s *ControllerState) EncodePayloadTo(enc *Encoder) {
	enc.WriteByte(s.DeviceID)
	enc.WriteByte(s.Flags)
	enc.WriteUint16(s.Buttons)
	enc.WriteInt16(s.LeftStick.X)
	enc.WriteInt16(s.LeftStick.Y)
	enc.WriteInt16(s.RightStick.X)
	enc.WriteInt16(s.RightStick.Y)
	enc.WriteUint16(s.LeftTrigger)
	enc.WriteUint16(s.RightTrigger)
	enc.WriteInt16(s.DPad.X)
	enc.WriteInt16(s.DPad.Y)
	enc.WriteZeros(stateReservedBytes)
	if s.HasSensors() {
		enc.WriteInt16(s.Gyro.X)
		enc.WriteInt16(s.Gyro.Y)
		enc.WriteInt16(s.Gyro.Z)
		enc.WriteInt16(s.Accel.X)
		enc.WriteInt16(s.Accel.Y)
		enc.WriteInt16(s.Accel.Z)
	}
}

// EncodePayload encodes the state payload to a new byte slice.
func (s *ControllerState) EncodePayload() []byte {
	enc := NewEncoderWithCap(s.PayloadSize())
	s.EncodePayloadTo(enc)
	return enc.Bytes()
}

// DecodeState decodes a controller-state payload. The byte count must equal
// exactly StateSize or StateSizeSensors; anything else is a malformed frame.
func DecodeState(payload []byte) (ControllerState, error) {
	if len(payload) != StateSize && len(payload) != StateSizeSensors {
		return ControllerState{}, ErrBadStateSize
	}

	d := NewDecoder(payload)
	var s ControllerState
	s.DeviceID, _ = d.ReadByte()
	s.Flags, _ = d.ReadByte()
	s.Buttons, _ = d.ReadUint16()
	s.LeftStick.X, _ = d.ReadInt16()
	s.LeftStick.Y, _ = d.ReadInt16()
	s.RightStick.X, _ = d.ReadInt16()
	s.RightStick.Y, _ = d.ReadInt16()
	s.LeftTrigger, _ = d.ReadUint16()
	s.RightTrigger, _ = d.ReadUint16()
	s.DPad.X, _ = d.ReadInt16()
	s.DPad.Y, _ = d.ReadInt16()
	_ = d.Skip(stateReservedBytes)

	if s.HasSensors() {
		if len(payload) != StateSizeSensors {
			return ControllerState{}, ErrBadStateSize
		}
		s.Gyro.X, _ = d.ReadInt16()
		s.Gyro.Y, _ = d.ReadInt16()
		s.Gyro.Z, _ = d.ReadInt16()
		s.Accel.X, _ = d.ReadInt16()
		s.Accel.Y, _ = d.ReadInt16()
		s.Accel.Z, _ = d.ReadInt16()
	} else if len(payload) != StateSize {
		return ControllerState{}, ErrBadStateSize
	}

	return s, nil
}

// DecodeStateFrame decodes a complete controller-state frame, returning the
// envelope and the state with its capture timestamp restored from the
// envelope. A frame of any other message type is a malformed state frame.
func DecodeStateFrame(data []byte) (Envelope, ControllerState, error) {
	env, payload, err := DecodeFrame(data)
	if err != nil {
		return Envelope{}, ControllerState{}, err
	}
	if env.Type != MsgControllerState {
		return Envelope{}, ControllerState{}, ErrBadStateSize
	}
	s, err := DecodeState(payload)
	if err != nil {
		return Envelope{}, ControllerState{}, err
	}
	s.TimestampMicros = env.TimestampMicros
	return env, s, nil
}

// EncodeState encodes a complete frame (envelope plus payload) for the given
// state and sequence number. The envelope timestamp carries the state's
// capture timestamp.
func EncodeState(s *ControllerState, seq uint32) []byte {
	size := s.PayloadSize()
	enc := NewEncoderWithCap(EnvelopeSize + size)

	env := Envelope{
		Type:            MsgControllerState,
		Version:         Version,
		PayloadLength:   uint16(size),
		Seq:             seq,
		TimestampMicros: s.TimestampMicros,
	}
	env.EncodeTo(enc)
	s.EncodePayloadTo(enc)
	return enc.Bytes()
}
