package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/leandrodaf/relayorgan/internal/logger"
	"github.com/leandrodaf/relayorgan/internal/source/keys"
	"github.com/leandrodaf/relayorgan/sdk/contracts"
	"github.com/leandrodaf/relayorgan/sdk/midi"
	"github.com/leandrodaf/relayorgan/sdk/organ"
)

// Echoes a MIDI keyboard to the log. Without a known keyboard, the digit
// keys of the terminal play instead.
func main() {
	log := logger.NewConsoleLogger()
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var src contracts.EventSource
	capture, err := midi.OpenController(nil, contracts.WithLogger(log), contracts.WithLogLevel(contracts.InfoLevel))
	switch {
	case err == nil:
		defer capture.Close()
		src = capture
		fmt.Println("Capturing MIDI events... Press Ctrl+C to exit.")
	case errors.Is(err, midi.ErrNoController):
		restore, err := keys.RawTerminal(int(os.Stdin.Fd()))
		if err != nil {
			log.Error("Failed to set up terminal", log.Field().Error("error", err))
			return
		}
		defer restore()
		src = keys.NewSource(os.Stdin, 48, log)
		fmt.Println("No keyboard found. Type 0-9 to toggle notes, space to clear, Ctrl+C to exit.")
	default:
		log.Error("Failed to open MIDI input", log.Field().Error("error", err))
		return
	}

	if err := organ.Run(ctx, src, organ.NewMonitorSink(organ.WithLogger(log)), organ.WithLogger(log)); err != nil {
		log.Error("Playback stopped", log.Field().Error("error", err))
	}
}
