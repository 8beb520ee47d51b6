// Package smffile plays a Standard MIDI File as a sequence of note events.
package smffile

import (
	"cmp"
	"context"
	"fmt"
	"io"
	"os"
	"slices"
	"time"

	"github.com/leandrodaf/relayorgan/sdk/contracts"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

// Source yields every message of every track, merged by time. Each event's
// TimeOffset is the gap since the previous message in the merged stream.
type Source struct {
	events []contracts.NoteEvent
	next   int
}

// Open reads the whole file at path.
func Open(path string, logger contracts.Logger) (*Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	s, err := Read(f, logger)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	logger.Info("Playing MIDI file",
		logger.Field().String("path", path),
		logger.Field().Int("events", len(s.events)),
		logger.Field().Duration("length", s.Length()))
	return s, nil
}

// Read parses an SMF stream.
func Read(r io.Reader, logger contracts.Logger) (*Source, error) {
	var tes []smf.TrackEvent
	tr := smf.ReadTracksFrom(r).Do(func(te smf.TrackEvent) {
		tes = append(tes, te)
	})
	if err := tr.Error(); err != nil {
		return nil, err
	}

	slices.SortStableFunc(tes, func(a, b smf.TrackEvent) int {
		return cmp.Compare(a.AbsMicroSeconds, b.AbsMicroSeconds)
	})

	events := make([]contracts.NoteEvent, 0, len(tes))
	var prev int64
	var notes int
	for _, te := range tes {
		offset := time.Duration(te.AbsMicroSeconds-prev) * time.Microsecond
		prev = te.AbsMicroSeconds

		ev := convert(midi.Message(te.Message), offset)
		if ev.IsNote() {
			notes++
		}
		events = append(events, ev)
	}
	logger.Debug("Parsed MIDI file",
		logger.Field().Int("messages", len(events)),
		logger.Field().Int("notes", notes))
	return &Source{events: events}, nil
}

func convert(msg midi.Message, offset time.Duration) contracts.NoteEvent {
	var ch, key, vel uint8
	switch {
	case msg.GetNoteStart(&ch, &key, &vel):
		return contracts.NewNoteEvent(contracts.KindNoteOn, key, vel, offset)
	case msg.GetNoteEnd(&ch, &key):
		return contracts.NewNoteEvent(contracts.KindNoteOff, key, 0, offset)
	}
	return contracts.NewMetaEvent(offset)
}

// Next returns the next event or io.EOF once the file is played.
func (s *Source) Next(ctx context.Context) (contracts.NoteEvent, error) {
	if err := ctx.Err(); err != nil {
		return contracts.NoteEvent{}, err
	}
	if s.next >= len(s.events) {
		return contracts.NoteEvent{}, io.EOF
	}
	ev := s.events[s.next]
	s.next++
	return ev, nil
}

// Length is the playing time of the whole file.
func (s *Source) Length() time.Duration {
	var d time.Duration
	for _, ev := range s.events {
		d += ev.TimeOffset
	}
	return d
}
