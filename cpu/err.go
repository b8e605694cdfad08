package cpu

import (
	"errors"

	"github.com/ezrec/c6461/translate"
)

var f = translate.From

var (
	// Execution loop sentinels
	ErrHalted       = errors.New(f("HLT instruction executed"))
	ErrInputPending = errors.New(f("input pending"))
)

// Fault is a machine-fault register code. Codes compose by OR in the
// MFR, though the loop exits at the first non-zero value.
type Fault uint8

const (
	FAULT_RESERVED_MEM = Fault(0b0001) // reserved memory
	FAULT_TRAP_CODE    = Fault(0b0010) // illegal trap code
	FAULT_OPCODE       = Fault(0b0100) // illegal opcode
	FAULT_BEYOND_MEM   = Fault(0b1000) // memory beyond bounds
)

func (fa Fault) Error() string {
	return f("machine fault %04b", uint8(fa))
}

func (fa Fault) Is(err error) (ok bool) {
	_, ok = err.(Fault)
	return
}

// ErrSource qualifies an assembler error with its 1-based source line.
type ErrSource struct {
	LineNo int
	Line   string
	Err    error
}

func (err *ErrSource) Error() string {
	return f("line %d '%v' %v", err.LineNo, err.Line, err.Err)
}

func (err *ErrSource) Unwrap() error {
	return err.Err
}

type ErrDuplicateLabel string

func (err ErrDuplicateLabel) Error() string {
	return f("duplicate label '%v'", string(err))
}

type ErrUndefinedSymbol string

func (err ErrUndefinedSymbol) Error() string {
	return f("undefined symbol '%v'", string(err))
}

type ErrUnknownOpcode string

func (err ErrUnknownOpcode) Error() string {
	return f("unknown opcode '%v'", string(err))
}

type ErrOperandCount struct {
	Mnemonic string
	Expected int
	Actual   int
}

func (err *ErrOperandCount) Error() string {
	return f("%v expects %d operands, got %d", err.Mnemonic, err.Expected, err.Actual)
}

type ErrOperandRange struct {
	Field  string
	Min    int
	Max    int
	Actual int
}

func (err *ErrOperandRange) Error() string {
	return f("%v value %d outside [%d,%d]", err.Field, err.Actual, err.Min, err.Max)
}

type ErrMalformedDirective struct {
	Directive string
	Detail    string
}

func (err *ErrMalformedDirective) Error() string {
	return f("malformed %v directive: %v", err.Directive, err.Detail)
}

type ErrExpression string

func (err ErrExpression) Error() string {
	return f("$(%v) is not a valid expression", string(err))
}
