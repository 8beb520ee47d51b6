// Package serialmidi reads note events from a MIDI interface exposed as a
// serial port, such as a DIN-to-UART adapter on a Raspberry Pi.
package serialmidi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/leandrodaf/relayorgan/sdk/contracts"
	"gitlab.com/gomidi/midi/v2"
	"go.bug.st/serial"
)

// DefaultBaud is the MIDI DIN wire rate.
const DefaultBaud = 31250

// Source yields note events decoded from a serial byte stream.
type Source struct {
	port   io.ReadCloser
	logger contracts.Logger
	events chan contracts.NoteEvent
	done   chan struct{}

	errMu sync.Mutex
	err   error

	closeOnce sync.Once
}

// Open opens a serial port at baud (DefaultBaud when zero) and starts
// reading from it.
func Open(name string, baud int, logger contracts.Logger) (*Source, error) {
	if baud <= 0 {
		baud = DefaultBaud
	}
	p, err := serial.Open(name, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", name, err)
	}
	logger.Info("Serial MIDI port opened",
		logger.Field().String("device", name),
		logger.Field().Int("baud", baud))
	return newSource(p, logger), nil
}

// Ports lists the serial ports of the machine, for status output.
func Ports() ([]string, error) {
	return serial.GetPortsList()
}

func newSource(port io.ReadCloser, logger contracts.Logger) *Source {
	s := &Source{
		port:   port,
		logger: logger,
		events: make(chan contracts.NoteEvent, 64),
		done:   make(chan struct{}),
	}
	go s.readLoop()
	return s
}

func (s *Source) readLoop() {
	defer close(s.events)

	var f Framer
	buf := make([]byte, 128)
	for {
		n, err := s.port.Read(buf)
		for _, b := range buf[:n] {
			msg, ok := f.Feed(b)
			if !ok {
				continue
			}
			select {
			case s.events <- decode(midi.Message(msg)):
			case <-s.done:
				return
			}
		}
		if err != nil {
			s.setErr(err)
			return
		}
	}
}

func decode(msg midi.Message) contracts.NoteEvent {
	var ch, key, vel uint8
	switch {
	case msg.GetNoteStart(&ch, &key, &vel):
		return contracts.NewNoteEvent(contracts.KindNoteOn, key, vel, 0)
	case msg.GetNoteEnd(&ch, &key):
		return contracts.NewNoteEvent(contracts.KindNoteOff, key, 0, 0)
	}
	return contracts.NewMetaEvent(0)
}

func (s *Source) setErr(err error) {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	s.err = err
}

// Next blocks for the next decoded message. When the port reports EOF or
// is closed the sequence ends with io.EOF; other read errors are returned.
func (s *Source) Next(ctx context.Context) (contracts.NoteEvent, error) {
	select {
	case <-ctx.Done():
		return contracts.NoteEvent{}, ctx.Err()
	case ev, ok := <-s.events:
		if ok {
			return ev, nil
		}
	}

	s.errMu.Lock()
	err := s.err
	s.errMu.Unlock()
	select {
	case <-s.done:
		return contracts.NoteEvent{}, io.EOF
	default:
	}
	if err == nil || errors.Is(err, io.EOF) {
		return contracts.NoteEvent{}, io.EOF
	}
	return contracts.NoteEvent{}, fmt.Errorf("serial read: %w", err)
}

// Close releases the port. Read errors caused by closing are not reported.
func (s *Source) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		err = s.port.Close()
	})
	return err
}
