//go:build linux
// +build linux

package i2cbus

import (
	i2c "github.com/d2r2/go-i2c"
	logger "github.com/d2r2/go-logger"
)

func init() {
	// go-i2c logs every transfer at debug level through its own logger.
	_ = logger.ChangePackageLogLevel("i2c", logger.InfoLevel)
}

func openDevice(addr uint8, bus int) (device, error) {
	d, err := i2c.NewI2C(addr, bus)
	if err != nil {
		return nil, err
	}
	return d, nil
}
