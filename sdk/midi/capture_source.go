package midi

import (
	"context"
	"io"
	"sync"

	"github.com/leandrodaf/relayorgan/sdk/contracts"
)

// DefaultCaptureBuffer is the capacity of the channel between the platform
// callback and the dispatch loop. The callback drops events when it is full.
const DefaultCaptureBuffer = 100

// CaptureSource adapts a capturing ClientMIDI to contracts.EventSource.
type CaptureSource struct {
	client  contracts.ClientMIDI
	events  chan contracts.MIDI
	done    chan struct{}
	closeMu sync.Once
}

// NewCaptureSource selects device on client and starts capture. The live
// sequence never ends on its own; it ends when ctx is cancelled or Close is
// called.
func NewCaptureSource(client contracts.ClientMIDI, device contracts.DeviceInfo, buffer int) (*CaptureSource, error) {
	if buffer <= 0 {
		buffer = DefaultCaptureBuffer
	}
	if err := client.SelectDevice(device.ID); err != nil {
		return nil, err
	}
	s := &CaptureSource{
		client: client,
		events: make(chan contracts.MIDI, buffer),
		done:   make(chan struct{}),
	}
	client.StartCapture(s.events)
	return s, nil
}

// Next blocks until the controller sends a message. Non-note messages are
// returned as Meta events.
func (s *CaptureSource) Next(ctx context.Context) (contracts.NoteEvent, error) {
	select {
	case <-ctx.Done():
		return contracts.NoteEvent{}, ctx.Err()
	case <-s.done:
		return contracts.NoteEvent{}, io.EOF
	case m := <-s.events:
		return contracts.FromMIDI(m), nil
	}
}

// Close stops capture and releases the device.
func (s *CaptureSource) Close() error {
	var err error
	s.closeMu.Do(func() {
		close(s.done)
		err = s.client.Stop()
	})
	return err
}
