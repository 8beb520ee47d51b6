package membus

import (
	"context"
	"testing"

	"github.com/leandrodaf/relayorgan/internal/logger"
	"github.com/leandrodaf/relayorgan/sdk/contracts"
	"github.com/leandrodaf/relayorgan/sdk/organ"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterFile(t *testing.T) {
	b := New(logger.NewNopLogger(), 0x20)
	ctx := context.Background()

	require.NoError(t, b.WriteRegister(ctx, 0x20, 0x0A, 0x5A))
	v, err := b.ReadRegister(ctx, 0x20, 0x0A)
	require.NoError(t, err)
	assert.Equal(t, byte(0x5A), v)

	_, err = b.ReadRegister(ctx, 0x27, 0x0A)
	assert.ErrorIs(t, err, ErrNoDevice)

	require.NoError(t, b.Close())
	assert.ErrorIs(t, b.WriteRegister(ctx, 0x20, 0x0A, 0), ErrClosed)
}

func TestStuckBits(t *testing.T) {
	b := New(logger.NewNopLogger(), 0x20)
	ctx := context.Background()
	b.StickHigh(0x20, 0x80)
	b.StickLow(0x20, 0x01)

	require.NoError(t, b.WriteRegister(ctx, 0x20, 0x0A, 0x01))
	v, err := b.ReadRegister(ctx, 0x20, 0x0A)
	require.NoError(t, err)
	assert.Equal(t, byte(0x80), v)

	raw, ok := b.Register(0x20, 0x0A)
	assert.True(t, ok)
	assert.Equal(t, byte(0x01), raw)

	// Other registers are not affected.
	require.NoError(t, b.WriteRegister(ctx, 0x20, 0x00, 0x00))
	v, err = b.ReadRegister(ctx, 0x20, 0x00)
	require.NoError(t, err)
	assert.Zero(t, v)
}

func TestControllerOnMemBus(t *testing.T) {
	cfg := contracts.DefaultBoardConfig()
	b := ForBoards(cfg, logger.NewNopLogger())
	var mismatches []organ.Mismatch
	c, err := organ.NewController(b, cfg,
		organ.WithLogger(logger.NewNopLogger()),
		organ.WithMismatchHandler(func(m organ.Mismatch) { mismatches = append(mismatches, m) }))
	require.NoError(t, err)
	require.NoError(t, c.Reset())

	require.NoError(t, c.Apply(contracts.NewNoteEvent(contracts.KindNoteOn, 52, 64, 0)))
	v, _ := b.Register(0x20, contracts.RelayRegister)
	assert.Equal(t, byte(0x10), v)
	assert.Empty(t, mismatches)

	b.StickLow(0x22, 0x01)
	require.NoError(t, c.Apply(contracts.NewNoteEvent(contracts.KindNoteOn, 64, 64, 0)))
	require.Len(t, mismatches, 1)
	assert.Equal(t, organ.Mismatch{Board: 2, Address: 0x22, Want: 0x01, Got: 0x00}, mismatches[0])
	assert.Equal(t, []uint8{0x10, 0, 0x01}, c.Masks())
}
