package main

import (
	"fmt"
	"os"

	"github.com/leandrodaf/relayorgan/internal/bus/i2cbus"
	"github.com/leandrodaf/relayorgan/internal/bus/membus"
	"github.com/leandrodaf/relayorgan/internal/config"
	"github.com/leandrodaf/relayorgan/internal/source/keys"
	"github.com/leandrodaf/relayorgan/internal/source/serialmidi"
	"github.com/leandrodaf/relayorgan/internal/source/smffile"
	"github.com/leandrodaf/relayorgan/sdk/contracts"
	"github.com/leandrodaf/relayorgan/sdk/midi"
	"github.com/leandrodaf/relayorgan/sdk/organ"
)

// source is an event source that holds a device or terminal.
type source interface {
	contracts.EventSource
	Close() error
}

type closerFunc struct {
	contracts.EventSource
	close func() error
}

func (c closerFunc) Close() error { return c.close() }

func noClose(src contracts.EventSource) source {
	return closerFunc{src, func() error { return nil }}
}

func openSource(cfg config.Config, boards contracts.BoardConfig, log contracts.Logger, level contracts.LogLevel) (source, error) {
	switch cfg.Source.Kind {
	case config.SourceKeys:
		restore, err := keys.RawTerminal(int(os.Stdin.Fd()))
		if err != nil {
			return nil, fmt.Errorf("terminal: %w", err)
		}
		return closerFunc{keys.NewSource(os.Stdin, boards.StartNote, log), restore}, nil

	case config.SourceFile:
		src, err := smffile.Open(cfg.Source.File, log)
		if err != nil {
			return nil, err
		}
		return noClose(src), nil

	case config.SourceSerial:
		src, err := serialmidi.Open(cfg.Source.Serial, cfg.Source.Baud, log)
		if err != nil {
			return nil, err
		}
		return src, nil

	default:
		return openController(cfg, log, level)
	}
}

func openController(cfg config.Config, log contracts.Logger, level contracts.LogLevel) (source, error) {
	src, err := midi.OpenController(cfg.Source.Controllers,
		contracts.WithLogger(log),
		contracts.WithLogLevel(level),
	)
	if err != nil {
		return nil, err
	}
	return src, nil
}

// output is the sink plus whatever it holds open.
type output struct {
	contracts.NoteSink
	bus        contracts.Bus
	mismatches int
}

func (o *output) Close() error {
	if o.bus == nil {
		return nil
	}
	return o.bus.Close()
}

func openSink(cfg config.Config, boards contracts.BoardConfig, log contracts.Logger) (*output, error) {
	if cfg.Output == config.OutputMonitor {
		return &output{NoteSink: organ.NewMonitorSink(organ.WithLogger(log))}, nil
	}

	var bus contracts.Bus
	if cfg.DryRun {
		log.Info("Dry run, relay boards are simulated")
		bus = membus.ForBoards(boards, log)
	} else {
		log.Info("Initializing boards", log.Field().Int("i2c_bus", cfg.Boards.I2CBus))
		b, err := i2cbus.Open(cfg.Boards.I2CBus, log)
		if err != nil {
			return nil, err
		}
		bus = b
	}

	out := &output{bus: bus}
	ctrl, err := organ.NewController(bus, boards,
		organ.WithLogger(log),
		organ.WithBusTimeout(cfg.Boards.BusTimeout),
		organ.WithMismatchHandler(func(organ.Mismatch) { out.mismatches++ }),
	)
	if err != nil {
		_ = bus.Close()
		return nil, err
	}
	out.NoteSink = ctrl
	return out, nil
}

func serialPorts() ([]string, error) {
	return serialmidi.Ports()
}
