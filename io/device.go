// Package io provides the character-level device models attached to
// the simulator: the keyboard input buffer and the printer. Devices
// are selected by the 5-bit device field of the IN/OUT/CHK
// instructions.
package io

import (
	"iter"
	"maps"
)

// Device ids wired by the machine. Ids 2..31 are free for drivers to
// attach their own models.
const (
	DEVICE_KEYBOARD = 0  // keyboard
	DEVICE_PRINTER  = 1  // printer
	DEVICE_COUNT    = 32 // size of the device table
)

var _io_defines = map[string]string{
	"DEVICE_KEYBOARD": "0",
	"DEVICE_PRINTER":  "1",
}

// Defines returns the device id constants by name.
func Defines() iter.Seq2[string, string] {
	return maps.All(_io_defines)
}

// Device is a character-level I/O channel.
type Device interface {
	// Read consumes one code point; ok is false when the device has
	// nothing to deliver.
	Read() (value uint16, ok bool)
	// Write emits one code point to the device.
	Write(value uint16) error
	// Ready reports whether the device can service its next transfer.
	Ready() bool
	// Reset returns the device to its power-up state.
	Reset()
}
