//go:build !linux
// +build !linux

package i2cbus

import (
	"errors"
	"runtime"
)

var errNoI2CDev = errors.New("i2c-dev is only available on linux, not " + runtime.GOOS)

func openDevice(addr uint8, bus int) (device, error) {
	return nil, errNoI2CDev
}
