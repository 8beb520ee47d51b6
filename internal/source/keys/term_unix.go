//go:build linux || darwin
// +build linux darwin

package keys

import (
	"errors"

	"golang.org/x/sys/unix"
)

// RawTerminal switches the terminal on fd to unbuffered, no-echo input so
// every keystroke is delivered at once. Signal keys keep working, so Ctrl+C
// still interrupts. The returned func restores the previous mode.
//
// If fd is not a terminal nothing is changed and restore is a no-op.
func RawTerminal(fd int) (restore func() error, err error) {
	old, err := unix.IoctlGetTermios(fd, ioctlGetTermios)
	if errors.Is(err, unix.ENOTTY) || errors.Is(err, unix.EINVAL) {
		return func() error { return nil }, nil
	}
	if err != nil {
		return nil, err
	}

	raw := *old
	raw.Lflag &^= unix.ICANON | unix.ECHO
	raw.Lflag |= unix.ISIG
	raw.Cc[unix.VMIN] = 1
	raw.Cc[unix.VTIME] = 0
	if err := unix.IoctlSetTermios(fd, ioctlSetTermios, &raw); err != nil {
		return nil, err
	}
	return func() error {
		return unix.IoctlSetTermios(fd, ioctlSetTermios, old)
	}, nil
}
