package protocol

import (
	"errors"
	"fmt"
)

// ErrMalformedFrame is the root of the decode error taxonomy. Every
// structural decode failure wraps it, so errors.Is(err, ErrMalformedFrame)
// identifies any frame that must be discarded.
var ErrMalformedFrame = errors.New("protocol: malformed frame")

// Specific decode failures. Each wraps ErrMalformedFrame.
var (
	// ErrShortHeader is returned when fewer than EnvelopeSize bytes are
	// supplied to a header decode.
	ErrShortHeader = fmt.Errorf("%w: short header", ErrMalformedFrame)

	// ErrShortPayload is returned when the buffer ends before the payload
	// length declared by the envelope.
	ErrShortPayload = fmt.Errorf("%w: truncated payload", ErrMalformedFrame)

	// ErrPayloadLengthMismatch is returned when the declared payload length
	// does not equal the bytes that follow the envelope.
	ErrPayloadLengthMismatch = fmt.Errorf("%w: payload length mismatch", ErrMalformedFrame)

	// ErrFrameTooLarge is returned when the declared payload length exceeds
	// MaxPayloadSize.
	ErrFrameTooLarge = fmt.Errorf("%w: declared payload too large", ErrMalformedFrame)

	// ErrVersionMismatch is returned when the envelope version is not the
	// single supported Version.
	ErrVersionMismatch = fmt.Errorf("%w: unsupported version", ErrMalformedFrame)

	// ErrUnknownMessageType is returned when the envelope message type is
	// not one of the defined enumerants.
	ErrUnknownMessageType = fmt.Errorf("%w: unknown message type", ErrMalformedFrame)

	// ErrBadStateSize is returned when a controller-state payload is not
	// exactly StateSize or StateSizeSensors bytes.
	ErrBadStateSize = fmt.Errorf("%w: controller state payload size", ErrMalformedFrame)
)
