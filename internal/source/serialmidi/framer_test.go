package serialmidi

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func frames(stream ...byte) [][]byte {
	var f Framer
	var out [][]byte
	for _, b := range stream {
		if msg, ok := f.Feed(b); ok {
			out = append(out, append([]byte(nil), msg...))
		}
	}
	return out
}

func TestFramer(t *testing.T) {
	tests := []struct {
		name   string
		stream []byte
		want   [][]byte
	}{
		{
			name:   "plain note on and off",
			stream: []byte{0x90, 60, 100, 0x80, 60, 0},
			want:   [][]byte{{0x90, 60, 100}, {0x80, 60, 0}},
		},
		{
			name:   "running status",
			stream: []byte{0x91, 60, 100, 64, 100, 60, 0},
			want:   [][]byte{{0x91, 60, 100}, {0x91, 64, 100}, {0x91, 60, 0}},
		},
		{
			name:   "realtime inside a message",
			stream: []byte{0x90, 0xF8, 60, 0xFE, 100},
			want:   [][]byte{{0x90, 60, 100}},
		},
		{
			name:   "sysex skipped and cancels running status",
			stream: []byte{0x90, 60, 100, 0xF0, 0x7E, 0x7F, 0x09, 0x01, 0xF7, 62, 100, 0x90, 62, 100},
			want:   [][]byte{{0x90, 60, 100}, {0x90, 62, 100}},
		},
		{
			name:   "program change takes one data byte",
			stream: []byte{0xC0, 5, 6, 0x90, 60, 1},
			want:   [][]byte{{0xC0, 5}, {0xC0, 6}, {0x90, 60, 1}},
		},
		{
			name:   "song position consumed",
			stream: []byte{0xF2, 0x10, 0x20, 0x90, 60, 1},
			want:   [][]byte{{0x90, 60, 1}},
		},
		{
			name:   "data before any status",
			stream: []byte{60, 100, 0x80, 60, 0},
			want:   [][]byte{{0x80, 60, 0}},
		},
		{
			name:   "status interrupts a partial message",
			stream: []byte{0x90, 60, 0x80, 61, 0},
			want:   [][]byte{{0x80, 61, 0}},
		},
		{
			name:   "unterminated sysex ended by a status byte",
			stream: []byte{0xF0, 0x01, 0x02, 0x90, 60, 100},
			want:   [][]byte{{0x90, 60, 100}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, frames(tt.stream...))
		})
	}
}
