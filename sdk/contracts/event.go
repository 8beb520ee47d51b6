package contracts

import (
	"context"
	"fmt"
	"time"
)

// EventKind distinguishes note events from everything else a source yields.
type EventKind int

const (
	// Meta is any non-note message. It still carries a time offset.
	Meta EventKind = iota
	// KindNoteOn energizes a note.
	KindNoteOn
	// KindNoteOff releases a note.
	KindNoteOff
)

func (k EventKind) String() string {
	switch k {
	case KindNoteOn:
		return "note_on"
	case KindNoteOff:
		return "note_off"
	default:
		return "meta"
	}
}

// NoteEvent is an immutable note message as consumed by the dispatch loop.
// Build it with NewNoteEvent so that NoteOn with velocity 0 arrives as
// NoteOff.
type NoteEvent struct {
	Kind       EventKind
	Note       uint8
	Velocity   uint8
	TimeOffset time.Duration
}

// NewNoteEvent builds a normalized event. A negative offset is treated as
// zero. Note numbers are kept as given so that out-of-range input stays
// out of range.
func NewNoteEvent(kind EventKind, note, velocity uint8, offset time.Duration) NoteEvent {
	if kind == KindNoteOn && velocity == 0 {
		kind = KindNoteOff
	}
	if offset < 0 {
		offset = 0
	}
	return NoteEvent{Kind: kind, Note: note, Velocity: velocity, TimeOffset: offset}
}

// NewMetaEvent builds a non-note event that only paces playback.
func NewMetaEvent(offset time.Duration) NoteEvent {
	return NewNoteEvent(Meta, 0, 0, offset)
}

// FromMIDI converts a captured controller message. Anything that is not a
// note on/off becomes a Meta event.
func FromMIDI(m MIDI) NoteEvent {
	switch m.Kind() {
	case NoteOn:
		return NewNoteEvent(KindNoteOn, m.Note, m.Velocity, 0)
	case NoteOff:
		return NewNoteEvent(KindNoteOff, m.Note, m.Velocity, 0)
	}
	return NewMetaEvent(0)
}

// IsNote reports whether the event addresses a note.
func (e NoteEvent) IsNote() bool {
	return e.Kind == KindNoteOn || e.Kind == KindNoteOff
}

func (e NoteEvent) String() string {
	if !e.IsNote() {
		return fmt.Sprintf("meta time=%s", e.TimeOffset)
	}
	return fmt.Sprintf("%s note=%d velocity=%d time=%s", e.Kind, e.Note, e.Velocity, e.TimeOffset)
}

// EventSource yields a lazy, possibly infinite sequence of note events.
// Next blocks until an event is available, the context is done (ctx.Err()
// is returned) or the sequence is exhausted (io.EOF is returned).
type EventSource interface {
	Next(ctx context.Context) (NoteEvent, error)
}

// NoteSink consumes note events. Reset brings the output to a known all-off
// state before the first event, Release does the same on the way out and
// must be attempted on every exit path.
type NoteSink interface {
	Reset() error
	Apply(ev NoteEvent) error
	Release() error
}
