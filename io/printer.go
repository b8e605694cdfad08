package io

import (
	"io"
)

// Printer collects the bytes emitted by OUT. Every byte since the
// last reset stays readable through Bytes so a headless harness can
// inspect the full output; an optional Output writer mirrors bytes as
// they arrive.
type Printer struct {
	Output io.Writer

	printed []byte
}

var _ Device = (*Printer)(nil)

// Write emits the low byte of value.
func (pr *Printer) Write(value uint16) (err error) {
	b := byte(value & 0xff)
	pr.printed = append(pr.printed, b)

	if pr.Output != nil {
		_, err = pr.Output.Write([]byte{b})
	}

	return
}

// Read is not supported; the printer is output-only.
func (pr *Printer) Read() (value uint16, ok bool) {
	return
}

// Ready always holds; the printer never blocks.
func (pr *Printer) Ready() bool {
	return true
}

// Bytes returns everything printed since the last reset.
func (pr *Printer) Bytes() []byte {
	return pr.printed
}

// Reset discards the collected output.
func (pr *Printer) Reset() {
	pr.printed = nil
}
