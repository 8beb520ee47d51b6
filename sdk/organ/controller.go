package organ

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/leandrodaf/relayorgan/sdk/contracts"
	"go.uber.org/multierr"
)

// Error definitions for controller misuse and bus failures.
var (
	ErrNotReady       = errors.New("relay controller not reset yet")
	ErrFaulted        = errors.New("relay controller faulted")
	ErrTransportFault = errors.New("relay bus transport fault")
	ErrNilBus         = errors.New("relay controller needs a bus")
)

// State is the controller lifecycle state.
type State int

const (
	Uninitialized State = iota
	Ready
	Verifying
	Faulted
)

func (s State) String() string {
	switch s {
	case Ready:
		return "ready"
	case Verifying:
		return "verifying"
	case Faulted:
		return "faulted"
	default:
		return "uninitialized"
	}
}

// Controller drives the relay boards from note events and verifies every
// write by reading the relay register back.
//
// A Controller is owned by a single goroutine; it does no locking. Once a
// bus operation fails the controller is Faulted and refuses further
// commands, except for Release which still tries to switch everything off.
type Controller struct {
	bus        contracts.Bus
	cfg        contracts.BoardConfig
	logger     contracts.Logger
	timeout    time.Duration
	onMismatch func(Mismatch)

	state State
	masks stateStore
}

// NewController validates cfg and returns a controller in the
// Uninitialized state. Call Reset before the first Apply.
func NewController(bus contracts.Bus, cfg contracts.BoardConfig, opts ...Option) (*Controller, error) {
	if bus == nil {
		return nil, ErrNilBus
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := applyDefaultOptions(opts...)
	return &Controller{
		bus:        bus,
		cfg:        cfg,
		logger:     o.Logger,
		timeout:    o.BusTimeout,
		onMismatch: o.OnMismatch,
		masks:      newStateStore(cfg.BoardCount),
	}, nil
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	return c.state
}

// Masks returns a copy of the intended relay masks, board 0 first.
func (c *Controller) Masks() []uint8 {
	return c.masks.snapshot()
}

// Config returns the board configuration the controller was built with.
func (c *Controller) Config() contracts.BoardConfig {
	return c.cfg
}

// Reset switches every relay off, board 0 first, and leaves the
// controller Ready. The first transport error faults the controller and
// stops the reset.
func (c *Controller) Reset() error {
	if c.state == Faulted {
		return ErrFaulted
	}
	c.masks.clear()
	for board := 0; board < c.cfg.BoardCount; board++ {
		c.logger.Info("Resetting board",
			c.logger.Field().Int("board", board),
			c.logger.Field().Hex("address", c.cfg.DeviceAddress(board)))
		if err := c.applyBoard(board); err != nil {
			return err
		}
	}
	c.state = Ready
	return nil
}

// Apply maps a note event onto the relay state and pushes the affected
// board to the bus. Out-of-range notes and meta events are ignored.
func (c *Controller) Apply(ev contracts.NoteEvent) error {
	switch c.state {
	case Uninitialized:
		return ErrNotReady
	case Faulted:
		return ErrFaulted
	}
	if !ev.IsNote() {
		return nil
	}

	m := Map(int(ev.Note), c.cfg)
	switch m.Kind {
	case OutOfRange:
		c.logger.Info("Ignoring note out of range",
			c.logger.Field().String("event", ev.String()),
			c.logger.Field().Int("start_note", c.cfg.StartNote),
			c.logger.Field().Int("end_note", c.cfg.LastNote()))
		return nil
	case AllGroup:
		mask := uint8(0)
		if ev.Kind == contracts.KindNoteOn {
			mask = AllGroupMask
		}
		c.logger.Info("Playing all notes",
			c.logger.Field().Int("board", m.Board),
			c.logger.Field().Hex("mask", mask))
		c.masks.set(m.Board, mask)
	case Mapped:
		c.logger.Debug("Note mapped",
			c.logger.Field().String("event", ev.String()),
			c.logger.Field().Int("board", m.Board),
			c.logger.Field().Int("relay", int(m.Bit)))
		c.masks.update(m.Board, m.Bit, ev.Kind, c.cfg.Policy)
	}
	return c.applyBoard(m.Board)
}

// Release switches every relay off on the way out. Unlike Reset it runs
// even on a faulted controller and keeps going past failing boards; all
// errors are returned combined.
func (c *Controller) Release() error {
	c.masks.clear()
	var errs error
	for board := 0; board < c.cfg.BoardCount; board++ {
		if err := c.transact(board); err != nil {
			c.state = Faulted
			errs = multierr.Append(errs, fmt.Errorf("%w: board %d: %w", ErrTransportFault, board, err))
		}
	}
	if errs != nil {
		c.logger.Error("Could not switch every relay off", c.logger.Field().Error("error", errs))
		return errs
	}
	if c.state != Faulted {
		c.state = Ready
	}
	c.logger.Info("All relays released")
	return nil
}

// applyBoard pushes one board's mask and verifies it, moving through
// Verifying back to Ready, or to Faulted on a bus error.
func (c *Controller) applyBoard(board int) error {
	c.state = Verifying
	if err := c.transact(board); err != nil {
		c.state = Faulted
		c.logger.Error("IO error on relay bus, is it plugged in?",
			c.logger.Field().Int("board", board),
			c.logger.Field().Error("error", err))
		return fmt.Errorf("%w: %w", ErrTransportFault, err)
	}
	c.state = Ready
	return nil
}

// transact performs the register protocol for one board: unlock write,
// relay write, settling read, verifying read. A mismatch is reported and
// otherwise ignored; the stored mask keeps the intent.
func (c *Controller) transact(board int) error {
	addr := c.cfg.DeviceAddress(board)
	want := c.masks[board]

	if err := c.write(addr, contracts.UnlockRegister, 0); err != nil {
		return err
	}
	if err := c.write(addr, contracts.RelayRegister, want); err != nil {
		return err
	}
	if _, err := c.read(addr, contracts.RelayRegister); err != nil {
		return err
	}
	got, err := c.read(addr, contracts.RelayRegister)
	if err != nil {
		return err
	}

	if got != want {
		c.logger.Warn("Relay state mismatch",
			c.logger.Field().Int("board", board),
			c.logger.Field().Hex("address", addr),
			c.logger.Field().Hex("wanted", want),
			c.logger.Field().Hex("read", got))
		c.onMismatch(Mismatch{Board: board, Address: addr, Want: want, Got: got})
		return nil
	}
	c.logger.Debug("Board state verified",
		c.logger.Field().Int("board", board),
		c.logger.Field().Hex("mask", got))
	return nil
}

func (c *Controller) write(addr, reg, val byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()
	return asTransportError("write", addr, reg, c.bus.WriteRegister(ctx, addr, reg, val))
}

func (c *Controller) read(addr, reg byte) (byte, error) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()
	v, err := c.bus.ReadRegister(ctx, addr, reg)
	return v, asTransportError("read", addr, reg, err)
}

func asTransportError(op string, addr, reg byte, err error) error {
	if err == nil {
		return nil
	}
	var te *contracts.TransportError
	if errors.As(err, &te) {
		return err
	}
	return &contracts.TransportError{Op: op, Address: addr, Register: reg, Err: err}
}
