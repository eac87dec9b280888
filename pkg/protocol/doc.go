// Package protocol implements the binary wire protocol for the controller
// input relay.
//
// Every message on the wire is a frame: a fixed 16-byte envelope followed by
// a payload whose length the envelope declares. All integers are
// little-endian.
//
// # Wire Format
//
//	Envelope (16 bytes):
//	┌──────────────┬─────────┬────────────────┬──────────────┬──────────────────┐
//	│ messageType  │ version │ payloadLength  │ sequence     │ timestampMicros  │
//	│ (1 byte)     │ (1 byte)│ (2 bytes)      │ (4 bytes)    │ (8 bytes)        │
//	└──────────────┴─────────┴────────────────┴──────────────┴──────────────────┘
//	│                                                                           │
//	│  Payload (payloadLength bytes)                                            │
//	└───────────────────────────────────────────────────────────────────────────┘
//
// The ControllerState payload is 26 bytes, or 38 bytes when both sensor flag
// bits are set. There are no partial sensor payloads: the serialized size is
// fully determined by the flags byte.
//
// # Streaming Reassembly
//
// FrameLen determines the total expected frame length from just the first 16
// bytes, so a receive loop can reassemble frames from a byte stream without
// buffering more than one frame ahead.
//
// # Errors
//
// All structural decode failures wrap ErrMalformedFrame, so callers can
// classify them with a single errors.Is check. Malformed frames are
// non-retryable: discard the frame and count it.
package protocol
