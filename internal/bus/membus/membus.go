// Package membus is an in-memory register file standing in for the relay
// boards during dry runs.
package membus

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/leandrodaf/relayorgan/sdk/contracts"
)

var (
	// ErrNoDevice mimics an unacknowledged address.
	ErrNoDevice = errors.New("no device at address")
	ErrClosed   = errors.New("bus closed")
)

// Bus implements contracts.Bus over a map of per-device register files.
type Bus struct {
	logger contracts.Logger

	mu     sync.Mutex
	regs   map[byte]*[256]byte
	stuck  map[byte]stuckBits
	closed bool
}

// stuckBits forces bits of the relay register on read, like a welded or
// dead relay contact.
type stuckBits struct {
	high, low uint8
}

// New returns a bus with a device at each of addresses.
func New(logger contracts.Logger, addresses ...byte) *Bus {
	b := &Bus{
		logger: logger,
		regs:   make(map[byte]*[256]byte, len(addresses)),
		stuck:  make(map[byte]stuckBits),
	}
	for _, a := range addresses {
		b.regs[a] = new([256]byte)
	}
	return b
}

// ForBoards returns a bus with one device per board of cfg.
func ForBoards(cfg contracts.BoardConfig, logger contracts.Logger) *Bus {
	addrs := make([]byte, cfg.BoardCount)
	for i := range addrs {
		addrs[i] = cfg.DeviceAddress(i)
	}
	return New(logger, addrs...)
}

// StickHigh makes the given relay bits of a device always read back as 1.
func (b *Bus) StickHigh(address byte, mask uint8) {
	b.mu.Lock()
	defer b.mu.Unlock()
	s := b.stuck[address]
	s.high |= mask
	b.stuck[address] = s
}

// StickLow makes the given relay bits of a device always read back as 0.
func (b *Bus) StickLow(address byte, mask uint8) {
	b.mu.Lock()
	defer b.mu.Unlock()
	s := b.stuck[address]
	s.low |= mask
	b.stuck[address] = s
}

func (b *Bus) WriteRegister(ctx context.Context, address, register, value byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	regs, err := b.lookup(ctx, address)
	if err != nil {
		return err
	}
	regs[register] = value
	b.logger.Debug("membus write",
		b.logger.Field().Hex("address", address),
		b.logger.Field().Hex("register", register),
		b.logger.Field().Hex("value", value))
	return nil
}

func (b *Bus) ReadRegister(ctx context.Context, address, register byte) (byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	regs, err := b.lookup(ctx, address)
	if err != nil {
		return 0, err
	}
	v := regs[register]
	if register == contracts.RelayRegister {
		s := b.stuck[address]
		v = (v | s.high) &^ s.low
	}
	return v, nil
}

// Register returns the last value written to a register, ignoring stuck bits.
func (b *Bus) Register(address, register byte) (byte, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	regs, ok := b.regs[address]
	if !ok {
		return 0, false
	}
	return regs[register], true
}

func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

func (b *Bus) lookup(ctx context.Context, address byte) (*[256]byte, error) {
	if b.closed {
		return nil, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	regs, ok := b.regs[address]
	if !ok {
		return nil, fmt.Errorf("%w 0x%02x", ErrNoDevice, address)
	}
	return regs, nil
}
