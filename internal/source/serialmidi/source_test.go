package serialmidi

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/leandrodaf/relayorgan/internal/logger"
	"github.com/leandrodaf/relayorgan/sdk/contracts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pipePort struct {
	*io.PipeReader
	w *io.PipeWriter
}

func newPipePort() *pipePort {
	r, w := io.Pipe()
	return &pipePort{PipeReader: r, w: w}
}

func TestSourceDecodesNotes(t *testing.T) {
	stream := []byte{0x90, 60, 100, 60, 0, 0xB0, 7, 100, 0x82, 61, 64}
	src := newSource(io.NopCloser(bytes.NewReader(stream)), logger.NewNopLogger())
	ctx := context.Background()

	var got []contracts.NoteEvent
	for {
		ev, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		got = append(got, ev)
	}
	assert.Equal(t, []contracts.NoteEvent{
		contracts.NewNoteEvent(contracts.KindNoteOn, 60, 100, 0),
		contracts.NewNoteEvent(contracts.KindNoteOff, 60, 0, 0),
		contracts.NewMetaEvent(0),
		contracts.NewNoteEvent(contracts.KindNoteOff, 61, 0, 0),
	}, got)
}

func TestSourceReadError(t *testing.T) {
	p := newPipePort()
	src := newSource(p, logger.NewNopLogger())
	boom := errors.New("device unplugged")
	require.NoError(t, p.w.CloseWithError(boom))

	_, err := src.Next(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestSourceCloseEndsSequence(t *testing.T) {
	p := newPipePort()
	src := newSource(p, logger.NewNopLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := src.Next(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	require.NoError(t, src.Close())
	require.NoError(t, src.Close())
	_, err = src.Next(context.Background())
	assert.ErrorIs(t, err, io.EOF)
}
