package io

import (
	"errors"

	"github.com/ezrec/c6461/translate"
)

var f = translate.From

var (
	// Device errors
	ErrNotInput  = errors.New(f("device is not an input device"))
	ErrNotOutput = errors.New(f("device is not an output device"))
)
