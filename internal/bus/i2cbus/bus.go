// Package i2cbus talks to the relay boards over a Linux i2c-dev adapter.
package i2cbus

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/leandrodaf/relayorgan/sdk/contracts"
	"go.uber.org/multierr"
)

var (
	// ErrBusWedged is returned for every operation after one timed out. The
	// timed-out syscall may still hold the adapter, so the bus is not reused.
	ErrBusWedged = errors.New("i2c bus wedged after timeout")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("i2c bus closed")
)

// device is one slave address on the adapter.
type device interface {
	WriteRegU8(reg byte, value byte) error
	ReadRegU8(reg byte) (byte, error)
	Close() error
}

type opener func(addr uint8, bus int) (device, error)

// Bus implements contracts.Bus. Device handles are opened on first use and
// kept until Close.
type Bus struct {
	number int
	open   opener
	logger contracts.Logger

	mu      sync.Mutex
	devices map[byte]device
	wedged  error
	closed  bool
}

// Open returns a bus on /dev/i2c-<number>. No device is touched until the
// first register operation.
func Open(number int, logger contracts.Logger) (*Bus, error) {
	return newBus(number, openDevice, logger)
}

func newBus(number int, open opener, logger contracts.Logger) (*Bus, error) {
	if number < 0 {
		return nil, fmt.Errorf("invalid i2c bus number %d", number)
	}
	return &Bus{
		number:  number,
		open:    open,
		logger:  logger,
		devices: make(map[byte]device),
	}, nil
}

// WriteRegister writes one byte to a register of the device at address.
func (b *Bus) WriteRegister(ctx context.Context, address, register, value byte) error {
	_, err := b.do(ctx, address, func(d device) (byte, error) {
		return 0, d.WriteRegU8(register, value)
	})
	return err
}

// ReadRegister reads one byte from a register of the device at address.
func (b *Bus) ReadRegister(ctx context.Context, address, register byte) (byte, error) {
	return b.do(ctx, address, func(d device) (byte, error) {
		return d.ReadRegU8(register)
	})
}

type result struct {
	val byte
	err error
}

// do runs op on its own goroutine so ctx can bound it. The ioctl itself
// cannot be interrupted; on timeout the goroutine is abandoned and the bus
// is marked wedged.
func (b *Bus) do(ctx context.Context, address byte, op func(device) (byte, error)) (byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch {
	case b.closed:
		return 0, ErrClosed
	case b.wedged != nil:
		return 0, b.wedged
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	dev, err := b.device(address)
	if err != nil {
		return 0, err
	}

	done := make(chan result, 1)
	go func() {
		v, err := op(dev)
		done <- result{v, err}
	}()

	select {
	case r := <-done:
		return r.val, r.err
	case <-ctx.Done():
		b.wedged = fmt.Errorf("%w: %w", ErrBusWedged, ctx.Err())
		b.logger.Error("I2C operation timed out, refusing further bus traffic",
			b.logger.Field().Int("bus", b.number),
			b.logger.Field().Hex("address", address))
		return 0, b.wedged
	}
}

func (b *Bus) device(address byte) (device, error) {
	if d, ok := b.devices[address]; ok {
		return d, nil
	}
	d, err := b.open(address, b.number)
	if err != nil {
		return nil, fmt.Errorf("open i2c device 0x%02x on bus %d: %w", address, b.number, err)
	}
	b.logger.Debug("Opened I2C device",
		b.logger.Field().Int("bus", b.number),
		b.logger.Field().Hex("address", address))
	b.devices[address] = d
	return d, nil
}

// Close releases every device handle. A wedged bus skips the handles, as
// closing them could block behind the hung operation.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	if b.wedged != nil {
		return nil
	}
	var err error
	for addr, d := range b.devices {
		if cerr := d.Close(); cerr != nil {
			err = multierr.Append(err, fmt.Errorf("close i2c device 0x%02x: %w", addr, cerr))
		}
	}
	b.devices = nil
	return err
}
