package main

import (
	"flag"
	"io"
	"time"

	"github.com/leandrodaf/relayorgan/internal/config"
)

// cliFlags holds the command line. Only flags given explicitly override
// the config file.
type cliFlags struct {
	configPath string
	list       bool

	source     string
	file       string
	serial     string
	baud       int
	output     string
	policy     string
	startNote  int
	endNote    int
	allNote    int
	boards     int
	baseAddr   int
	i2cBus     int
	busTimeout time.Duration
	dry        bool
	logLevel   string
	logFile    string
}

func parseFlags(args []string, stderr io.Writer) (*flag.FlagSet, *cliFlags, error) {
	d := config.Default()
	f := &cliFlags{}
	fs := flag.NewFlagSet("relayorgan", flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.StringVar(&f.configPath, "config", "relayorgan.yaml", "YAML config file; missing file means defaults")
	fs.BoolVar(&f.list, "list", false, "list MIDI inputs and serial ports, then exit")

	fs.StringVar(&f.source, "source", d.Source.Kind, "event source: midi, keys, file or serial")
	fs.StringVar(&f.file, "file", d.Source.File, "MIDI file to play with -source file")
	fs.StringVar(&f.serial, "serial", d.Source.Serial, "serial device for -source serial")
	fs.IntVar(&f.baud, "baud", d.Source.Baud, "serial baud rate")
	fs.StringVar(&f.output, "output", d.Output, "organ (relay boards) or monitor (print only)")
	fs.StringVar(&f.policy, "policy", d.Notes.Policy, "distinct (on sets, off clears) or toggle")
	fs.IntVar(&f.startNote, "start-note", d.Notes.Start, "MIDI note of the first relay")
	fs.IntVar(&f.endNote, "end-note", d.Notes.End, "last mapped MIDI note, 0 for all relays")
	fs.IntVar(&f.allNote, "all-note", d.Notes.AllNotes, "MIDI note that switches the first four relays, negative to disable")
	fs.IntVar(&f.boards, "boards", d.Boards.Count, "number of relay boards")
	fs.IntVar(&f.baseAddr, "base-addr", d.Boards.BaseAddress, "I2C address of board 0")
	fs.IntVar(&f.i2cBus, "i2c-bus", d.Boards.I2CBus, "I2C adapter number (/dev/i2c-N)")
	fs.DurationVar(&f.busTimeout, "bus-timeout", d.Boards.BusTimeout, "timeout for a single register access")
	fs.BoolVar(&f.dry, "dry", d.DryRun, "simulate the relay boards in memory")
	fs.StringVar(&f.logLevel, "log-level", d.Log.Level, "debug, info, warn or error")
	fs.StringVar(&f.logFile, "log-file", d.Log.File, "write logs to this file instead of stderr")

	if err := fs.Parse(args); err != nil {
		return fs, nil, err
	}
	return fs, f, nil
}

// override copies every explicitly set flag into cfg.
func (f *cliFlags) override(fs *flag.FlagSet, cfg *config.Config) {
	fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "source":
			cfg.Source.Kind = f.source
		case "file":
			cfg.Source.File = f.file
		case "serial":
			cfg.Source.Serial = f.serial
		case "baud":
			cfg.Source.Baud = f.baud
		case "output":
			cfg.Output = f.output
		case "policy":
			cfg.Notes.Policy = f.policy
		case "start-note":
			cfg.Notes.Start = f.startNote
		case "end-note":
			cfg.Notes.End = f.endNote
		case "all-note":
			cfg.Notes.AllNotes = f.allNote
		case "boards":
			cfg.Boards.Count = f.boards
		case "base-addr":
			cfg.Boards.BaseAddress = f.baseAddr
		case "i2c-bus":
			cfg.Boards.I2CBus = f.i2cBus
		case "bus-timeout":
			cfg.Boards.BusTimeout = f.busTimeout
		case "dry":
			cfg.DryRun = f.dry
		case "log-level":
			cfg.Log.Level = f.logLevel
		case "log-file":
			cfg.Log.File = f.logFile
		}
	})
}
