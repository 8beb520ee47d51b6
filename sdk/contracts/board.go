package contracts

import (
	"errors"
	"fmt"
	"strings"
)

// RelaysPerBoard is fixed by the hardware: one 8-bit register per board.
const RelaysPerBoard = 8

// ErrInvalidBoardConfig is wrapped by every BoardConfig validation failure.
var ErrInvalidBoardConfig = errors.New("invalid board configuration")

// TogglePolicy selects how a mapped note event changes its relay bit.
type TogglePolicy string

const (
	// DistinctOnOff sets the bit on NoteOn and clears it on NoteOff.
	DistinctOnOff TogglePolicy = "distinct"
	// Toggle flips the bit on every note event regardless of kind.
	Toggle TogglePolicy = "toggle"
)

// ParseTogglePolicy accepts "distinct" (also "distinctOnOff") and "toggle".
func ParseTogglePolicy(s string) (TogglePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "distinct", "distinctonoff":
		return DistinctOnOff, nil
	case "toggle":
		return Toggle, nil
	}
	return "", fmt.Errorf("%w: unknown toggle policy %q", ErrInvalidBoardConfig, s)
}

// BoardConfig describes the relay boards and how notes map onto them.
// It is built once at startup and never mutated.
type BoardConfig struct {
	BaseAddress  byte
	BoardCount   int
	StartNote    int
	EndNote      int // inclusive; 0 derives StartNote + BoardCount*8 - 1
	AllNotesNote int // negative disables the all-relays note
	Policy       TogglePolicy
}

// DefaultBoardConfig returns the wiring of the organ as built: three boards
// at 0x20, keyboard starting at C3.
func DefaultBoardConfig() BoardConfig {
	return BoardConfig{
		BaseAddress:  0x20,
		BoardCount:   3,
		StartNote:    48,
		AllNotesNote: 99,
		Policy:       DistinctOnOff,
	}
}

// LastNote returns the inclusive upper bound of the mapped range.
func (c BoardConfig) LastNote() int {
	if c.EndNote == 0 {
		return c.StartNote + c.BoardCount*RelaysPerBoard - 1
	}
	return c.EndNote
}

// DeviceAddress returns the bus address of a board.
func (c BoardConfig) DeviceAddress(board int) byte {
	return c.BaseAddress + byte(board)
}

// Validate checks the invariants the mapper and controller rely on.
func (c BoardConfig) Validate() error {
	if c.BoardCount < 1 {
		return fmt.Errorf("%w: board count %d must be at least 1", ErrInvalidBoardConfig, c.BoardCount)
	}
	end := c.LastNote()
	if c.StartNote < 0 || c.StartNote > 127 {
		return fmt.Errorf("%w: start note %d out of 0-127", ErrInvalidBoardConfig, c.StartNote)
	}
	if end < c.StartNote || end > 127 {
		return fmt.Errorf("%w: end note %d must be within %d-127", ErrInvalidBoardConfig, end, c.StartNote)
	}
	if span := end - c.StartNote + 1; span > c.BoardCount*RelaysPerBoard {
		return fmt.Errorf("%w: %d notes do not fit on %d boards of %d relays",
			ErrInvalidBoardConfig, span, c.BoardCount, RelaysPerBoard)
	}
	if c.AllNotesNote > 127 {
		return fmt.Errorf("%w: all-notes note %d out of 0-127", ErrInvalidBoardConfig, c.AllNotesNote)
	}
	last := int(c.BaseAddress) + c.BoardCount - 1
	if c.BaseAddress < 0x03 || last > 0x77 {
		return fmt.Errorf("%w: device addresses 0x%02x-0x%02x outside 0x03-0x77",
			ErrInvalidBoardConfig, c.BaseAddress, last)
	}
	if c.Policy != DistinctOnOff && c.Policy != Toggle {
		return fmt.Errorf("%w: unknown toggle policy %q", ErrInvalidBoardConfig, c.Policy)
	}
	return nil
}
