package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/leandrodaf/relayorgan/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

func TestFlagsOverrideOnlyWhenSet(t *testing.T) {
	fs, f, err := parseFlags([]string{"-policy", "toggle", "-base-addr", "0x24", "-bus-timeout", "1s"}, io.Discard)
	require.NoError(t, err)

	cfg := config.Default()
	cfg.Notes.Start = 36 // as if read from the file
	f.override(fs, &cfg)

	assert.Equal(t, "toggle", cfg.Notes.Policy)
	assert.Equal(t, 0x24, cfg.Boards.BaseAddress)
	assert.Equal(t, time.Second, cfg.Boards.BusTimeout)
	assert.Equal(t, 36, cfg.Notes.Start, "unset flags keep the file value")
}

func TestRunUsageErrors(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "none.yaml")
	var stderr bytes.Buffer

	assert.Equal(t, exitUsage, run([]string{"-no-such-flag"}, io.Discard, &stderr))
	assert.Equal(t, exitUsage, run([]string{"-config", missing, "-source", "osc"}, io.Discard, &stderr))
	assert.Equal(t, exitUsage, run([]string{"-config", missing, "-boards", "0"}, io.Discard, &stderr))
	assert.Equal(t, exitOK, run([]string{"-h"}, io.Discard, &stderr))
}

func TestRunFileOnSimulatedBoards(t *testing.T) {
	dir := t.TempDir()
	song := filepath.Join(dir, "song.mid")

	s := smf.New()
	var tr smf.Track
	tr.Add(0, midi.NoteOn(0, 52, 100))
	tr.Add(48, midi.NoteOn(0, 99, 100))
	tr.Add(48, midi.NoteOff(0, 99))
	tr.Add(48, midi.NoteOff(0, 52))
	tr.Close(0)
	require.NoError(t, s.Add(tr))
	var buf bytes.Buffer
	_, err := s.WriteTo(&buf)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(song, buf.Bytes(), 0o644))

	code := run([]string{
		"-config", filepath.Join(dir, "none.yaml"),
		"-source", "file", "-file", song,
		"-dry", "-log-level", "error",
	}, io.Discard, io.Discard)
	assert.Equal(t, exitOK, code)

	code = run([]string{
		"-config", filepath.Join(dir, "none.yaml"),
		"-source", "file", "-file", song,
		"-output", "monitor", "-log-level", "error",
	}, io.Discard, io.Discard)
	assert.Equal(t, exitOK, code)
}

func TestRunMissingFile(t *testing.T) {
	dir := t.TempDir()
	code := run([]string{
		"-config", filepath.Join(dir, "none.yaml"),
		"-source", "file", "-file", filepath.Join(dir, "missing.mid"),
		"-dry", "-log-level", "error",
	}, io.Discard, io.Discard)
	assert.Equal(t, exitUsage, code)
}
