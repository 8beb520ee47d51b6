package contracts

import (
	"context"
	"fmt"
)

// Register addresses used by the relay boards.
const (
	// UnlockRegister receives a dummy zero write before every relay command.
	UnlockRegister byte = 0x00
	// RelayRegister holds one bit per relay, bit i = relay i.
	RelayRegister byte = 0x0A
)

// Bus is a register-style transport to addressed devices. Implementations
// are single-owner: callers never issue overlapping operations. The context
// bounds a single operation.
type Bus interface {
	WriteRegister(ctx context.Context, address, register, value byte) error
	ReadRegister(ctx context.Context, address, register byte) (byte, error)
	Close() error
}

// TransportError reports an I/O failure on the bus.
type TransportError struct {
	Op       string // "write" or "read"
	Address  byte
	Register byte
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("bus %s addr=0x%02x reg=0x%02x: %v", e.Op, e.Address, e.Register, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
