package organ

import (
	"testing"

	"github.com/leandrodaf/relayorgan/sdk/contracts"
	"github.com/stretchr/testify/assert"
)

func TestMapBoundaries(t *testing.T) {
	cfg := contracts.DefaultBoardConfig() // 48..71, all-notes 99

	tests := []struct {
		name string
		note int
		want MappingResult
	}{
		{"start note", 48, MappingResult{Kind: Mapped, Board: 0, Bit: 0}},
		{"end note", 71, MappingResult{Kind: Mapped, Board: 2, Bit: 7}},
		{"board boundary", 56, MappingResult{Kind: Mapped, Board: 1, Bit: 0}},
		{"below start", 47, MappingResult{Kind: OutOfRange}},
		{"above end", 72, MappingResult{Kind: OutOfRange}},
		{"all notes", 99, MappingResult{Kind: AllGroup, Board: 0}},
		{"far out", 200, MappingResult{Kind: OutOfRange}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Map(tt.note, cfg))
		})
	}
}

func TestMapCoversWholeRange(t *testing.T) {
	cfg := contracts.DefaultBoardConfig()
	for n := cfg.StartNote; n <= cfg.LastNote(); n++ {
		got := Map(n, cfg)
		assert.Equal(t, Mapped, got.Kind, "note %d", n)
		assert.Equal(t, (n-cfg.StartNote)/8, got.Board, "note %d", n)
		assert.Equal(t, uint((n-cfg.StartNote)%8), got.Bit, "note %d", n)
	}
	for n := 0; n < 256; n++ {
		if n >= cfg.StartNote && n <= cfg.LastNote() || n == cfg.AllNotesNote {
			continue
		}
		assert.Equal(t, OutOfRange, Map(n, cfg).Kind, "note %d", n)
	}
}

func TestMapExplicitEndNote(t *testing.T) {
	cfg := contracts.DefaultBoardConfig()
	cfg.StartNote = 60
	cfg.EndNote = 71 // one octave only
	cfg.AllNotesNote = 72

	assert.Equal(t, MappingResult{Kind: Mapped, Board: 1, Bit: 3}, Map(71, cfg))
	assert.Equal(t, MappingResult{Kind: AllGroup, Board: 0}, Map(72, cfg))
	assert.Equal(t, OutOfRange, Map(73, cfg).Kind)
}

func TestMapAllNotesWinsInsideRange(t *testing.T) {
	cfg := contracts.DefaultBoardConfig()
	cfg.StartNote = 60
	cfg.AllNotesNote = 72 // inside 60..83

	assert.Equal(t, AllGroup, Map(72, cfg).Kind)
	assert.Equal(t, Mapped, Map(73, cfg).Kind)
}

func TestMapAllNotesDisabled(t *testing.T) {
	cfg := contracts.DefaultBoardConfig()
	cfg.AllNotesNote = -1

	assert.Equal(t, OutOfRange, Map(99, cfg).Kind)
	assert.Equal(t, Mapped, Map(48, cfg).Kind)
}
