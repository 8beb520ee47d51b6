// Package keys turns single keystrokes into note events so the organ can be
// played from a terminal.
package keys

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/leandrodaf/relayorgan/sdk/contracts"
)

// Velocity is sent for a digit switched on.
const Velocity = 64

const digits = 10

type readResult struct {
	b   byte
	err error
}

// Source maps digits 0-9 to notes startNote..startNote+9. Each digit
// toggles its note; space releases every held note.
//
// A reader goroutine owns r. When the source is abandoned before r returns
// EOF the goroutine stays blocked in Read until the process exits.
type Source struct {
	startNote int
	logger    contracts.Logger
	held      [digits]bool
	pending   []contracts.NoteEvent
	input     <-chan readResult
}

// NewSource starts reading r.
func NewSource(r io.Reader, startNote int, logger contracts.Logger) *Source {
	ch := make(chan readResult)
	go func() {
		defer close(ch)
		buf := make([]byte, 1)
		for {
			n, err := r.Read(buf)
			if n == 1 {
				ch <- readResult{b: buf[0]}
			}
			if err != nil {
				ch <- readResult{err: err}
				return
			}
		}
	}()
	logger.Info("Listening for tty keystrokes",
		logger.Field().Int("first_note", startNote),
		logger.Field().Int("last_note", startNote+digits-1))
	return &Source{startNote: startNote, logger: logger, input: ch}
}

// Next returns the next note event. Reader EOF ends the sequence with
// io.EOF; other read errors are returned as is.
func (s *Source) Next(ctx context.Context) (contracts.NoteEvent, error) {
	for {
		if len(s.pending) > 0 {
			ev := s.pending[0]
			s.pending = s.pending[1:]
			return ev, nil
		}

		if s.input == nil {
			return contracts.NoteEvent{}, io.EOF
		}

		var r readResult
		var ok bool
		select {
		case <-ctx.Done():
			return contracts.NoteEvent{}, ctx.Err()
		case r, ok = <-s.input:
		}
		switch {
		case !ok, errors.Is(r.err, io.EOF):
			s.input = nil
			return contracts.NoteEvent{}, io.EOF
		case r.err != nil:
			return contracts.NoteEvent{}, r.err
		}

		s.key(r.b)
	}
}

func (s *Source) key(b byte) {
	switch {
	case b >= '0' && b <= '9':
		d := int(b - '0')
		s.held[d] = !s.held[d]
		s.pending = append(s.pending, s.event(d))
	case b == ' ':
		s.logger.Info("Clearing")
		for d := range s.held {
			if s.held[d] {
				s.held[d] = false
				s.pending = append(s.pending, s.event(d))
			}
		}
	default:
		s.logger.Info("Discarding key", s.logger.Field().String("key", printable(b)))
	}
}

// event builds the message the way a keyboard sends it: NoteOn, with
// velocity 0 for release.
func (s *Source) event(d int) contracts.NoteEvent {
	vel := uint8(0)
	if s.held[d] {
		vel = Velocity
	}
	return contracts.NewNoteEvent(contracts.KindNoteOn, uint8(s.startNote+d), vel, 0)
}

func printable(b byte) string {
	return fmt.Sprintf("%q", rune(b))
}
