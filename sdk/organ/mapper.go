package organ

import (
	"fmt"

	"github.com/leandrodaf/relayorgan/sdk/contracts"
)

// AllGroupMask is written to board 0 when the all-notes note is pressed.
// Only the low four relays are driven so the supply is not overloaded.
const AllGroupMask uint8 = 0x0F

// MappingKind tells how a note relates to the relay boards.
type MappingKind int

const (
	// OutOfRange notes are ignored.
	OutOfRange MappingKind = iota
	// Mapped notes address a single relay.
	Mapped
	// AllGroup addresses every driven relay of a board at once.
	AllGroup
)

func (k MappingKind) String() string {
	switch k {
	case Mapped:
		return "mapped"
	case AllGroup:
		return "all"
	default:
		return "out_of_range"
	}
}

// MappingResult is the outcome of Map.
type MappingResult struct {
	Kind  MappingKind
	Board int
	Bit   uint
}

func (m MappingResult) String() string {
	switch m.Kind {
	case Mapped:
		return fmt.Sprintf("board=%d relay=%d", m.Board, m.Bit)
	case AllGroup:
		return fmt.Sprintf("board=%d relay=all", m.Board)
	default:
		return "out of range"
	}
}

// Map resolves a note number to a relay. It has no side effects.
func Map(note int, cfg contracts.BoardConfig) MappingResult {
	if cfg.AllNotesNote >= 0 && note == cfg.AllNotesNote {
		return MappingResult{Kind: AllGroup, Board: 0}
	}
	if note < cfg.StartNote || note > cfg.LastNote() {
		return MappingResult{Kind: OutOfRange}
	}
	offset := note - cfg.StartNote
	return MappingResult{
		Kind:  Mapped,
		Board: offset / contracts.RelaysPerBoard,
		Bit:   uint(offset % contracts.RelaysPerBoard),
	}
}
