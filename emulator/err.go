package emulator

import (
	"errors"

	"github.com/ezrec/c6461/translate"
)

var f = translate.From

var (
	// Load image errors
	ErrRecordShort = errors.New(f("fewer than two fields"))
	ErrRecordOctal = errors.New(f("field is not octal"))
)

// ErrLoadRecord qualifies an IPL failure with the offending record.
type ErrLoadRecord struct {
	LineNo int
	Line   string
	Err    error
}

func (err *ErrLoadRecord) Error() string {
	return f("load record %d '%v' %v", err.LineNo, err.Line, err.Err)
}

func (err *ErrLoadRecord) Unwrap() error {
	return err.Err
}
