// Command relayorgan plays pipe organ relays from a MIDI keyboard, a MIDI
// file, a serial MIDI interface or the computer keyboard.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/leandrodaf/relayorgan/internal/config"
	"github.com/leandrodaf/relayorgan/internal/logger"
	"github.com/leandrodaf/relayorgan/sdk/contracts"
	"github.com/leandrodaf/relayorgan/sdk/midi"
	"github.com/leandrodaf/relayorgan/sdk/organ"
	"go.uber.org/multierr"
)

// Process exit codes.
const (
	exitOK             = 0
	exitTransportFault = 1
	exitNoController   = 2
	exitUsage          = 3
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs, flags, err := parseFlags(args, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return exitOK
	}
	if err != nil {
		return exitUsage
	}

	cfg, err := config.Load(flags.configPath)
	if err != nil {
		fmt.Fprintf(stderr, "relayorgan: %v\n", err)
		return exitUsage
	}
	flags.override(fs, &cfg)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "relayorgan: %v\n", err)
		return exitUsage
	}
	boards, _ := cfg.BoardConfig()
	level, _ := cfg.LogLevel()

	log := logger.NewConsoleLogger()
	if cfg.Log.File != "" {
		log.SetDestination(contracts.FileLog, cfg.Log.File)
	}
	log.SetLevel(level)
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if flags.list {
		return listInputs(stdout, log, level)
	}

	runID := uuid.New()
	log.Info("relayorgan starting",
		log.Field().String("run_id", runID.String()),
		log.Field().String("source", cfg.Source.Kind),
		log.Field().String("output", cfg.Output),
		log.Field().Bool("dry_run", cfg.DryRun),
		log.Field().Int("start_note", boards.StartNote),
		log.Field().Int("end_note", boards.LastNote()),
		log.Field().String("policy", string(boards.Policy)))

	// The source comes first: when no controller is found the relay bus is
	// never opened.
	src, err := openSource(cfg, boards, log, level)
	if err != nil {
		if errors.Is(err, midi.ErrNoController) {
			log.Error("No matching MIDI controller, giving up", log.Field().Error("error", err))
			return exitNoController
		}
		log.Error("Could not open event source", log.Field().Error("error", err))
		return exitUsage
	}

	sink, err := openSink(cfg, boards, log)
	if err != nil {
		log.Error("Could not open relay output", log.Field().Error("error", err))
		_ = src.Close()
		return exitTransportFault
	}

	err = organ.Run(ctx, src, sink, organ.WithLogger(log))
	err = multierr.Combine(err, sink.Close(), src.Close())

	log.Info("relayorgan stopped",
		log.Field().String("run_id", runID.String()),
		log.Field().Int("mismatches", sink.mismatches))
	return exitCode(err, log)
}

func exitCode(err error, log contracts.Logger) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, organ.ErrTransportFault):
		log.Error("Relay bus failed", log.Field().Error("error", err))
	default:
		log.Error("Stopped on error", log.Field().Error("error", err))
	}
	return exitTransportFault
}

func listInputs(stdout io.Writer, log contracts.Logger, level contracts.LogLevel) int {
	client, err := midi.NewMIDIClient(contracts.WithLogger(log), contracts.WithLogLevel(level))
	if err != nil {
		log.Error("Could not create MIDI client", log.Field().Error("error", err))
	} else {
		devices, err := client.ListDevices()
		if err != nil {
			log.Warn("Could not list MIDI inputs", log.Field().Error("error", err))
		}
		fmt.Fprintln(stdout, "MIDI inputs:")
		for _, d := range devices {
			fmt.Fprintf(stdout, "  %d: %s\n", d.ID, d.Name)
		}
		_ = client.Stop()
	}

	ports, err := serialPorts()
	if err != nil {
		log.Warn("Could not list serial ports", log.Field().Error("error", err))
	}
	fmt.Fprintln(stdout, "Serial ports:")
	for _, p := range ports {
		fmt.Fprintf(stdout, "  %s\n", p)
	}
	return exitOK
}
