package protocol

// Envelope constants.
const (
	// EnvelopeSize is the size of the frame envelope in bytes.
	EnvelopeSize = 16

	// Version is the single supported protocol version.
	Version = 1

	// MaxFrameSize is the maximum total frame size accepted on decode.
	// Anything declaring more is treated as a malformed frame rather than
	// buffered, which bounds per-connection memory.
	MaxFrameSize = 4096

	// MaxPayloadSize is the maximum payload size accepted on decode.
	MaxPayloadSize = MaxFrameSize - EnvelopeSize
)

// MessageType identifies the type of frame.
type MessageType uint8

const (
	MsgControllerState MessageType = 0x01 // Controller state snapshot
	MsgPing            MessageType = 0x02 // Liveness probe
	MsgAuthChallenge   MessageType = 0x03 // Reserved for future auth
	MsgAuthResponse    MessageType = 0x04 // Reserved for future auth
)

// String returns the string representation of the message type.
func (mt MessageType) String() string {
	switch mt {
	case MsgControllerState:
		return "ControllerState"
	case MsgPing:
		return "Ping"
	case MsgAuthChallenge:
		return "AuthChallenge"
	case MsgAuthResponse:
		return "AuthResponse"
	default:
		return "Unknown"
	}
}

// valid reports whether the message type is one of the defined enumerants.
func (mt MessageType) valid() bool {
	return mt >= MsgControllerState && mt <= MsgAuthResponse
}

// Envelope is the fixed 16-byte header prefixed to every frame.
//
//	┌─────────────┬──────────┬────────────────┬─────────────┬─────────────────┐
//	│ messageType │ version  │ payloadLength  │ sequence    │ timestampMicros │
//	│ (1 byte)    │ (1 byte) │ (2 bytes, LE)  │ (4 bytes)   │ (8 bytes)       │
//	└─────────────┴──────────┴────────────────┴─────────────┴─────────────────┘
//
// PayloadLength always equals the exact byte length of the payload that
// follows. TimestampMicros carries the capture timestamp of the state the
// frame transports, in wall-clock microseconds.
type Envelope struct {
	Type            MessageType
	Version         uint8
	PayloadLength   uint16
	Seq             uint32
	TimestampMicros uint64
}

// EncodeTo encodes the envelope using the provided encoder.
func (e *Envelope) EncodeTo(enc *Encoder) {
	enc.WriteByte(byte(e.Type))
	enc.WriteByte(e.Version)
	enc.WriteUint16(e.PayloadLength)
	enc.WriteUint32(e.Seq)
	enc.WriteUint64(e.TimestampMicros)
}

// DecodeEnvelope decodes and validates the 16-byte envelope at the start of
// data. It does not require the payload to be present; use FrameLen to learn
// how many bytes the full frame occupies.
func DecodeEnvelope(data []byte) (Envelope, error) {
	if len(data) < EnvelopeSize {
		return Envelope{}, ErrShortHeader
	}

	d := NewDecoder(data)
	mt, _ := d.ReadByte()
	ver, _ := d.ReadByte()
	length, _ := d.ReadUint16()
	seq, _ := d.ReadUint32()
	ts, _ := d.ReadUint64()

	env := Envelope{
		Type:            MessageType(mt),
		Version:         ver,
		PayloadLength:   length,
		Seq:             seq,
		TimestampMicros: ts,
	}

	if env.Version != Version {
		return Envelope{}, ErrVersionMismatch
	}
	if !env.Type.valid() {
		return Envelope{}, ErrUnknownMessageType
	}
	if int(env.PayloadLength) > MaxPayloadSize {
		return Envelope{}, ErrFrameTooLarge
	}

	return env, nil
}

// FrameLen returns the total expected frame length (envelope plus payload)
// from just the first EnvelopeSize bytes. It supports streaming reassembly:
// a receive loop can call it on a partial buffer to learn how many bytes to
// wait for before decoding the full frame.
func FrameLen(data []byte) (int, error) {
	env, err := DecodeEnvelope(data)
	if err != nil {
		return 0, err
	}
	return EnvelopeSize + int(env.PayloadLength), nil
}

// DecodeFrame decodes a complete frame, returning the envelope and payload.
// The payload slice references data; copy it if it must be retained.
func DecodeFrame(data []byte) (Envelope, []byte, error) {
	env, err := DecodeEnvelope(data)
	if err != nil {
		return Envelope{}, nil, err
	}

	rest := data[EnvelopeSize:]
	if len(rest) < int(env.PayloadLength) {
		return Envelope{}, nil, ErrShortPayload
	}
	if len(rest) != int(env.PayloadLength) {
		return Envelope{}, nil, ErrPayloadLengthMismatch
	}

	return env, rest[:env.PayloadLength], nil
}

// EncodePing encodes an empty-payload Ping frame with the given sequence
// number and timestamp.
func EncodePing(seq uint32, timestampMicros uint64) []byte {
	enc := NewEncoderWithCap(EnvelopeSize)
	env := Envelope{
		Type:            MsgPing,
		Version:         Version,
		PayloadLength:   0,
		Seq:             seq,
		TimestampMicros: timestampMicros,
	}
	env.EncodeTo(enc)
	return enc.Bytes()
}
