package input

import "time"

// Sample is one raw reading from a capture backend: pre-deadzone axis
// values, the full button bitmask, and optional sensor data. Samples are
// tagged with the logical device that produced them.
type Sample struct {
	DeviceID uint8
	Buttons  uint16

	LeftStickX  int16
	LeftStickY  int16
	RightStickX int16
	RightStickY int16

	LeftTrigger  uint16
	RightTrigger uint16

	DPadX int16
	DPadY int16

	HasGyro  bool
	HasAccel bool
	GyroX    int16
	GyroY    int16
	GyroZ    int16
	AccelX   int16
	AccelY   int16
	AccelZ   int16

	// Time is the capture timestamp. Zero means "now".
	Time time.Time
}
