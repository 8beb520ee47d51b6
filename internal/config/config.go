// Package config loads the organ's YAML configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/leandrodaf/relayorgan/sdk/contracts"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Source kinds.
const (
	SourceMIDI   = "midi"
	SourceKeys   = "keys"
	SourceFile   = "file"
	SourceSerial = "serial"
)

// Output kinds.
const (
	OutputOrgan   = "organ"
	OutputMonitor = "monitor"
)

type Config struct {
	Boards Boards `yaml:"boards"`
	Notes  Notes  `yaml:"notes"`
	Source Source `yaml:"source"`
	Output string `yaml:"output"`
	DryRun bool   `yaml:"dry_run"`
	Log    Log    `yaml:"log"`
}

type Boards struct {
	BaseAddress int           `yaml:"base_address"`
	Count       int           `yaml:"count"`
	I2CBus      int           `yaml:"i2c_bus"`
	BusTimeout  time.Duration `yaml:"bus_timeout"`
}

type Notes struct {
	Start    int    `yaml:"start"`
	End      int    `yaml:"end"`       // 0 derives from the board count
	AllNotes int    `yaml:"all_notes"` // negative disables
	Policy   string `yaml:"policy"`
}

type Source struct {
	Kind        string   `yaml:"kind"`
	File        string   `yaml:"file"`
	Serial      string   `yaml:"serial"`
	Baud        int      `yaml:"baud"`
	Controllers []string `yaml:"controllers"` // empty uses the built-in list
}

type Log struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// Default returns the configuration of the organ as wired.
func Default() Config {
	b := contracts.DefaultBoardConfig()
	return Config{
		Boards: Boards{
			BaseAddress: int(b.BaseAddress),
			Count:       b.BoardCount,
			I2CBus:      1,
			BusTimeout:  500 * time.Millisecond,
		},
		Notes: Notes{
			Start:    b.StartNote,
			End:      b.EndNote,
			AllNotes: b.AllNotesNote,
			Policy:   string(b.Policy),
		},
		Source: Source{
			Kind:   SourceMIDI,
			Serial: "/dev/ttyAMA0",
			Baud:   31250,
		},
		Output: OutputOrgan,
		Log:    Log{Level: "info"},
	}
}

// Load reads path over the defaults. A missing file yields the defaults;
// fields absent from the file keep their default values.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("%w: %s: %w", ErrInvalidConfig, path, err)
	}
	return cfg, nil
}

// BoardConfig converts the boards and notes sections for the controller.
func (c Config) BoardConfig() (contracts.BoardConfig, error) {
	policy, err := contracts.ParseTogglePolicy(c.Notes.Policy)
	if err != nil {
		return contracts.BoardConfig{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if c.Boards.BaseAddress < 0 || c.Boards.BaseAddress > 0x7F {
		return contracts.BoardConfig{}, fmt.Errorf("%w: base address %#x is not a 7-bit address",
			ErrInvalidConfig, c.Boards.BaseAddress)
	}
	bc := contracts.BoardConfig{
		BaseAddress:  byte(c.Boards.BaseAddress),
		BoardCount:   c.Boards.Count,
		StartNote:    c.Notes.Start,
		EndNote:      c.Notes.End,
		AllNotesNote: c.Notes.AllNotes,
		Policy:       policy,
	}
	if err := bc.Validate(); err != nil {
		return contracts.BoardConfig{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return bc, nil
}

// LogLevel parses the configured level name.
func (c Config) LogLevel() (contracts.LogLevel, error) {
	l, err := contracts.ParseLogLevel(c.Log.Level)
	if err != nil {
		return l, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return l, nil
}

// Validate checks everything the program needs before touching hardware.
func (c Config) Validate() error {
	if _, err := c.BoardConfig(); err != nil {
		return err
	}
	if _, err := c.LogLevel(); err != nil {
		return err
	}
	if c.Boards.I2CBus < 0 {
		return fmt.Errorf("%w: i2c bus %d", ErrInvalidConfig, c.Boards.I2CBus)
	}
	if c.Boards.BusTimeout <= 0 {
		return fmt.Errorf("%w: bus timeout must be positive, got %s", ErrInvalidConfig, c.Boards.BusTimeout)
	}

	switch c.Source.Kind {
	case SourceMIDI, SourceKeys:
	case SourceFile:
		if c.Source.File == "" {
			return fmt.Errorf("%w: file source needs a file", ErrInvalidConfig)
		}
	case SourceSerial:
		if c.Source.Serial == "" {
			return fmt.Errorf("%w: serial source needs a port", ErrInvalidConfig)
		}
		if c.Source.Baud <= 0 {
			return fmt.Errorf("%w: baud %d", ErrInvalidConfig, c.Source.Baud)
		}
	default:
		return fmt.Errorf("%w: unknown source %q", ErrInvalidConfig, c.Source.Kind)
	}

	switch c.Output {
	case OutputOrgan, OutputMonitor:
	default:
		return fmt.Errorf("%w: unknown output %q", ErrInvalidConfig, c.Output)
	}
	return nil
}
