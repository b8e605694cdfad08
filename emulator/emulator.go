// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

// Package emulator owns the machine aggregate: memory, the execution
// core, and the standard devices, plus the IPL loader and the
// headless harness surface used by drivers and tests.
package emulator

import (
	"errors"
	"iter"
	"log"

	"github.com/ezrec/c6461/cpu"
	"github.com/ezrec/c6461/internal"
	"github.com/ezrec/c6461/io"
	"github.com/ezrec/c6461/mem"
)

// Machine is the owning aggregate for one simulated computer. It is
// single-threaded: the execution loop, the IPL loader, and operator
// deposits are mutually exclusive by construction.
type Machine struct {
	Verbose bool // Set to enable verbose logging.

	Cpu *cpu.Cpu    // Execution core.
	Mem *mem.Memory // Main store plus cache.

	Keyboard io.Keyboard // Device 0.
	Printer  io.Printer  // Device 1.

	Cycles  int // Instructions executed since reset.
	running bool
}

// New creates a machine with the keyboard and printer attached.
func New() (ma *Machine) {
	ma = &Machine{
		Mem: mem.New(),
	}
	ma.Cpu = cpu.New(ma.Mem)

	ma.Cpu.SetDevice(io.DEVICE_KEYBOARD, &ma.Keyboard)
	ma.Cpu.SetDevice(io.DEVICE_PRINTER, &ma.Printer)

	return
}

// Defines returns an iterator over all of the machine constants, for
// predefining into an assembler or rendering on a console.
func (ma *Machine) Defines() iter.Seq2[string, string] {
	return internal.IterSeq2Concat(
		mem.Defines(),
		cpu.Defines(),
		io.Defines(),
	)
}

// Reset returns the machine to its power-up state: registers and
// devices cleared, memory zeroed, cache flushed.
func (ma *Machine) Reset() {
	if ma.Verbose {
		log.Printf("machine: reset")
	}

	ma.Cpu.Reset()
	ma.Mem.Reset()
	ma.Cycles = 0
	ma.running = false
}

// DepositInput queues text on the keyboard device.
func (ma *Machine) DepositInput(text string) {
	ma.Keyboard.Deposit(text)
}

// Printed returns every byte the printer has emitted since reset.
func (ma *Machine) Printed() []byte {
	return ma.Printer.Bytes()
}

// Deposit is the operator's direct memory store; it bypasses the
// cache like the front-panel deposit switches.
func (ma *Machine) Deposit(addr uint16, value uint16) error {
	return ma.Mem.DirectWrite(addr, value)
}

// Examine is the operator's direct memory fetch.
func (ma *Machine) Examine(addr uint16) (uint16, error) {
	return ma.Mem.DirectRead(addr)
}

// Halt requests the run loop stop at the next instruction boundary.
func (ma *Machine) Halt() {
	ma.running = false
}

// Running reports whether a Run loop is active.
func (ma *Machine) Running() bool {
	return ma.running
}

// Step executes one instruction. done reports that the machine
// halted (HLT or fault); a nil error with done false means the cycle
// completed normally. ErrInputPending is returned with the PC
// unchanged when IN found its buffer empty.
func (ma *Machine) Step() (done bool, err error) {
	ma.Cpu.Verbose = ma.Verbose

	err = ma.Cpu.Step()
	switch {
	case err == nil:
		ma.Cycles++
	case errors.Is(err, cpu.ErrHalted):
		log.Printf("HLT instruction executed.")
		done = true
		err = nil
	case errors.Is(err, cpu.ErrInputPending):
		// Suspended; the driver deposits input and steps again.
	case errors.Is(err, cpu.Fault(0)):
		log.Printf("machine fault at PC %04o: MFR %04b", ma.Cpu.Reg.Pc, ma.Cpu.Reg.Mfr)
		done = true
	}

	return
}

// Run executes instructions until halt, fault, input suspension, a
// driver Halt request, or the cycle bound. It returns the cycles
// executed by this call.
func (ma *Machine) Run(maxCycles int) (cycles int, err error) {
	ma.running = true
	defer func() { ma.running = false }()

	for cycles < maxCycles && ma.running {
		var done bool
		done, err = ma.Step()
		if done || err != nil {
			return
		}
		cycles++
	}

	return
}
