package main

import (
	"os"

	"golang.org/x/sys/unix"
)

var termRestore *unix.Termios

// enterRawTerm puts stdin into raw mode so keystrokes reach the
// keyboard device unbuffered. A non-terminal stdin is left alone.
func enterRawTerm() {
	termios, err := unix.IoctlGetTermios(int(os.Stdin.Fd()), unix.TCGETS)
	if err != nil {
		return
	}

	termRestore = termios
	termstate := *termios

	termstate.Iflag &^= unix.IGNBRK | unix.BRKINT | unix.INLCR
	termstate.Lflag &^= unix.ECHO | unix.ECHONL | unix.ICANON | unix.IEXTEN
	termstate.Cflag &^= unix.CSIZE | unix.PARENB
	termstate.Cflag |= unix.CS8

	termstate.Cc[unix.VMIN] = 1
	termstate.Cc[unix.VTIME] = 0

	_ = unix.IoctlSetTermios(int(os.Stdin.Fd()), unix.TCSETS, &termstate)
}

// exitRawTerm restores the terminal state saved by enterRawTerm.
func exitRawTerm() {
	if termRestore == nil {
		return
	}

	_ = unix.IoctlSetTermios(int(os.Stdin.Fd()), unix.TCSETS, termRestore)
	termRestore = nil
}
