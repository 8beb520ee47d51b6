package organ

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/leandrodaf/relayorgan/internal/logger"
	"github.com/leandrodaf/relayorgan/sdk/contracts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type busOp struct {
	Op   string
	Addr byte
	Reg  byte
	Val  byte
}

// fakeBus behaves like a board whose registers read back what was written,
// unless told otherwise.
type fakeBus struct {
	ops    []busOp
	regs   map[[2]byte]byte
	stuck  map[byte]byte // address -> value every read returns
	failOn func(op busOp) error
	block  bool
}

func newFakeBus() *fakeBus {
	return &fakeBus{regs: map[[2]byte]byte{}, stuck: map[byte]byte{}}
}

func (b *fakeBus) WriteRegister(ctx context.Context, addr, reg, val byte) error {
	op := busOp{"write", addr, reg, val}
	b.ops = append(b.ops, op)
	if b.block {
		<-ctx.Done()
		return ctx.Err()
	}
	if b.failOn != nil {
		if err := b.failOn(op); err != nil {
			return err
		}
	}
	b.regs[[2]byte{addr, reg}] = val
	return nil
}

func (b *fakeBus) ReadRegister(ctx context.Context, addr, reg byte) (byte, error) {
	op := busOp{"read", addr, reg, 0}
	b.ops = append(b.ops, op)
	if b.failOn != nil {
		if err := b.failOn(op); err != nil {
			return 0, err
		}
	}
	if v, ok := b.stuck[addr]; ok {
		return v, nil
	}
	return b.regs[[2]byte{addr, reg}], nil
}

func (b *fakeBus) Close() error { return nil }

func boardOps(addr, mask byte) []busOp {
	return []busOp{
		{"write", addr, 0x00, 0},
		{"write", addr, 0x0A, mask},
		{"read", addr, 0x0A, 0},
		{"read", addr, 0x0A, 0},
	}
}

func newTestController(t *testing.T, bus contracts.Bus, cfg contracts.BoardConfig, opts ...Option) *Controller {
	t.Helper()
	opts = append([]Option{WithLogger(logger.NewNopLogger())}, opts...)
	c, err := NewController(bus, cfg, opts...)
	require.NoError(t, err)
	return c
}

func readyController(t *testing.T, bus *fakeBus, cfg contracts.BoardConfig, opts ...Option) *Controller {
	t.Helper()
	c := newTestController(t, bus, cfg, opts...)
	require.NoError(t, c.Reset())
	bus.ops = nil
	return c
}

func noteOn(note uint8) contracts.NoteEvent {
	return contracts.NewNoteEvent(contracts.KindNoteOn, note, 64, 0)
}

func noteOff(note uint8) contracts.NoteEvent {
	return contracts.NewNoteEvent(contracts.KindNoteOff, note, 0, 0)
}

func TestNewControllerRejectsBadConfig(t *testing.T) {
	cfg := contracts.DefaultBoardConfig()
	cfg.EndNote = cfg.StartNote + 30 // 31 notes on 24 relays

	_, err := NewController(newFakeBus(), cfg, WithLogger(logger.NewNopLogger()))
	assert.ErrorIs(t, err, contracts.ErrInvalidBoardConfig)

	_, err = NewController(nil, contracts.DefaultBoardConfig())
	assert.ErrorIs(t, err, ErrNilBus)
}

func TestApplyBeforeReset(t *testing.T) {
	bus := newFakeBus()
	c := newTestController(t, bus, contracts.DefaultBoardConfig())

	assert.Equal(t, Uninitialized, c.State())
	assert.ErrorIs(t, c.Apply(noteOn(52)), ErrNotReady)
	assert.Empty(t, bus.ops)
}

func TestResetWritesEveryBoardInOrder(t *testing.T) {
	bus := newFakeBus()
	c := newTestController(t, bus, contracts.DefaultBoardConfig())

	require.NoError(t, c.Reset())

	var want []busOp
	want = append(want, boardOps(0x20, 0)...)
	want = append(want, boardOps(0x21, 0)...)
	want = append(want, boardOps(0x22, 0)...)
	assert.Equal(t, want, bus.ops)
	assert.Equal(t, []uint8{0, 0, 0}, c.Masks())
	assert.Equal(t, Ready, c.State())
}

func TestResetClearsPreviousState(t *testing.T) {
	bus := newFakeBus()
	c := readyController(t, bus, contracts.DefaultBoardConfig())

	require.NoError(t, c.Apply(noteOn(48)))
	require.NoError(t, c.Apply(noteOn(70)))
	require.NoError(t, c.Reset())

	assert.Equal(t, []uint8{0, 0, 0}, c.Masks())
}

func TestApplyNoteOnEndToEnd(t *testing.T) {
	bus := newFakeBus()
	var mismatches []Mismatch
	c := readyController(t, bus, contracts.DefaultBoardConfig(),
		WithMismatchHandler(func(m Mismatch) { mismatches = append(mismatches, m) }))

	require.NoError(t, c.Apply(noteOn(52)))

	assert.Equal(t, boardOps(0x20, 0x10), bus.ops)
	assert.Equal(t, []uint8{0x10, 0, 0}, c.Masks())
	assert.Empty(t, mismatches)
	assert.Equal(t, Ready, c.State())
}

func TestApplyAllNotes(t *testing.T) {
	bus := newFakeBus()
	c := readyController(t, bus, contracts.DefaultBoardConfig())
	require.NoError(t, c.Apply(noteOn(60))) // board 1 bit 4
	bus.ops = nil

	require.NoError(t, c.Apply(noteOn(99)))
	assert.Equal(t, boardOps(0x20, 0x0F), bus.ops)
	assert.Equal(t, []uint8{0x0F, 0x10, 0}, c.Masks())

	bus.ops = nil
	require.NoError(t, c.Apply(noteOff(99)))
	assert.Equal(t, boardOps(0x20, 0x00), bus.ops)
	assert.Equal(t, []uint8{0x00, 0x10, 0}, c.Masks())
}

func TestApplyAllNotesIsAbsoluteSet(t *testing.T) {
	bus := newFakeBus()
	c := readyController(t, bus, contracts.DefaultBoardConfig())

	require.NoError(t, c.Apply(noteOn(55))) // bit 7 on board 0
	require.NoError(t, c.Apply(noteOn(99)))
	assert.Equal(t, uint8(0x0F), c.Masks()[0])

	require.NoError(t, c.Apply(noteOn(99)))
	assert.Equal(t, uint8(0x0F), c.Masks()[0], "repeating the group note must not toggle")
}

func TestApplyOutOfRangeDoesNothing(t *testing.T) {
	bus := newFakeBus()
	c := readyController(t, bus, contracts.DefaultBoardConfig())
	require.NoError(t, c.Apply(noteOn(49)))
	before := c.Masks()
	bus.ops = nil

	for _, n := range []uint8{0, 47, 72, 98, 100, 127, 200} {
		require.NoError(t, c.Apply(noteOn(n)))
		require.NoError(t, c.Apply(noteOff(n)))
	}

	assert.Empty(t, bus.ops)
	assert.Equal(t, before, c.Masks())
}

func TestApplyIgnoresMeta(t *testing.T) {
	bus := newFakeBus()
	c := readyController(t, bus, contracts.DefaultBoardConfig())

	require.NoError(t, c.Apply(contracts.NewMetaEvent(time.Second)))
	assert.Empty(t, bus.ops)
}

func TestDistinctPolicy(t *testing.T) {
	bus := newFakeBus()
	c := readyController(t, bus, contracts.DefaultBoardConfig())

	require.NoError(t, c.Apply(noteOn(57))) // board 1 bit 1
	assert.Equal(t, uint8(0x02), c.Masks()[1])

	require.NoError(t, c.Apply(noteOn(57)))
	assert.Equal(t, uint8(0x02), c.Masks()[1], "second NoteOn keeps the bit set")

	require.NoError(t, c.Apply(noteOff(57)))
	assert.Equal(t, uint8(0x00), c.Masks()[1])

	require.NoError(t, c.Apply(noteOn(57)))
	require.NoError(t, c.Apply(contracts.NewNoteEvent(contracts.KindNoteOn, 57, 0, 0)))
	assert.Equal(t, uint8(0x00), c.Masks()[1], "velocity 0 NoteOn releases the note")
}

func TestTogglePolicy(t *testing.T) {
	cfg := contracts.DefaultBoardConfig()
	cfg.Policy = contracts.Toggle
	bus := newFakeBus()
	c := readyController(t, bus, cfg)

	require.NoError(t, c.Apply(noteOn(66))) // board 2 bit 2
	assert.Equal(t, uint8(0x04), c.Masks()[2])

	require.NoError(t, c.Apply(noteOn(66)))
	assert.Equal(t, uint8(0x00), c.Masks()[2])

	require.NoError(t, c.Apply(noteOff(66)))
	assert.Equal(t, uint8(0x04), c.Masks()[2], "NoteOff flips too")
}

func TestMismatchIsReportedNotFatal(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	bus := newFakeBus()
	var got []Mismatch
	c := readyController(t, bus, contracts.DefaultBoardConfig(),
		WithLogger(logger.NewFromZap(zap.New(core))),
		WithMismatchHandler(func(m Mismatch) { got = append(got, m) }))

	bus.stuck[0x20] = 0x00
	require.NoError(t, c.Apply(noteOn(52)))

	assert.Equal(t, []uint8{0x10, 0, 0}, c.Masks(), "store keeps the intent")
	assert.Equal(t, Ready, c.State())
	require.Len(t, got, 1)
	assert.Equal(t, Mismatch{Board: 0, Address: 0x20, Want: 0x10, Got: 0x00}, got[0])

	warnings := logs.FilterMessage("Relay state mismatch").All()
	require.Len(t, warnings, 1)
	assert.Equal(t, "0x10", warnings[0].ContextMap()["wanted"])
	assert.Equal(t, "0x00", warnings[0].ContextMap()["read"])

	// Processing continues.
	delete(bus.stuck, 0x20)
	require.NoError(t, c.Apply(noteOn(53)))
	assert.Equal(t, uint8(0x30), c.Masks()[0])
	assert.Len(t, got, 1)
}

func TestSettlingReadIsDiscarded(t *testing.T) {
	bus := newFakeBus()
	var mismatches int
	c := readyController(t, bus, contracts.DefaultBoardConfig(),
		WithMismatchHandler(func(Mismatch) { mismatches++ }))

	reads := 0
	bus.failOn = func(op busOp) error {
		if op.Op == "read" {
			reads++
			if reads == 1 {
				bus.stuck[0x20] = 0xFF // only the settling read sees garbage
			} else {
				delete(bus.stuck, 0x20)
			}
		}
		return nil
	}
	require.NoError(t, c.Apply(noteOn(48)))
	assert.Equal(t, 2, reads)
	assert.Zero(t, mismatches)
}

func TestTransportErrorFaults(t *testing.T) {
	bus := newFakeBus()
	c := readyController(t, bus, contracts.DefaultBoardConfig())
	ioErr := errors.New("remote I/O error")
	bus.failOn = func(op busOp) error {
		if op.Op == "write" && op.Reg == 0x0A {
			return ioErr
		}
		return nil
	}

	err := c.Apply(noteOn(60))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTransportFault)
	assert.ErrorIs(t, err, ioErr)
	var te *contracts.TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "write", te.Op)
	assert.Equal(t, byte(0x21), te.Address)
	assert.Equal(t, byte(0x0A), te.Register)
	assert.Equal(t, Faulted, c.State())

	bus.failOn = nil
	bus.ops = nil
	assert.ErrorIs(t, c.Apply(noteOn(61)), ErrFaulted)
	assert.ErrorIs(t, c.Reset(), ErrFaulted)
	assert.Empty(t, bus.ops, "no relay commands after a fault")
}

func TestResetStopsAtFirstTransportError(t *testing.T) {
	bus := newFakeBus()
	c := newTestController(t, bus, contracts.DefaultBoardConfig())
	bus.failOn = func(op busOp) error {
		if op.Addr == 0x21 {
			return errors.New("nack")
		}
		return nil
	}

	err := c.Reset()
	assert.ErrorIs(t, err, ErrTransportFault)
	assert.Equal(t, Faulted, c.State())
	for _, op := range bus.ops {
		assert.NotEqual(t, byte(0x22), op.Addr, "board 2 must not be touched after board 1 failed")
	}
}

func TestBusTimeoutIsTransportError(t *testing.T) {
	bus := newFakeBus()
	c := newTestController(t, bus, contracts.DefaultBoardConfig(), WithBusTimeout(10*time.Millisecond))
	bus.block = true

	err := c.Reset()
	assert.ErrorIs(t, err, ErrTransportFault)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, Faulted, c.State())
}

func TestReleaseIsBestEffort(t *testing.T) {
	bus := newFakeBus()
	c := readyController(t, bus, contracts.DefaultBoardConfig())
	require.NoError(t, c.Apply(noteOn(48)))
	require.NoError(t, c.Apply(noteOn(70)))
	bus.ops = nil
	bus.failOn = func(op busOp) error {
		if op.Addr == 0x21 {
			return errors.New("nack")
		}
		return nil
	}

	err := c.Release()
	assert.ErrorIs(t, err, ErrTransportFault)
	assert.Equal(t, Faulted, c.State())
	assert.Equal(t, []uint8{0, 0, 0}, c.Masks())

	var touched []byte
	for _, op := range bus.ops {
		if op.Op == "write" && op.Reg == 0x0A {
			touched = append(touched, op.Addr)
			assert.Zero(t, op.Val)
		}
	}
	assert.Equal(t, []byte{0x20, 0x22}, touched, "boards around the failing one are still released")
}

func TestReleaseRunsWhenFaulted(t *testing.T) {
	bus := newFakeBus()
	c := readyController(t, bus, contracts.DefaultBoardConfig())
	bus.failOn = func(busOp) error { return errors.New("gone") }
	require.Error(t, c.Apply(noteOn(48)))

	bus.failOn = nil
	bus.ops = nil
	require.NoError(t, c.Release())
	assert.Len(t, bus.ops, 12)
	assert.Equal(t, Faulted, c.State(), "release does not clear a fault")
}
