package organ

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/leandrodaf/relayorgan/sdk/contracts"
	"go.uber.org/multierr"
)

// Run drives sink from src until the source is exhausted, ctx is done or
// the sink fails.
//
// The sink is reset before the first event and released on every exit
// path. Exhaustion and cancellation are clean exits and return nil; a sink
// or source error stops the loop and is returned. Cancellation is only
// observed between events, never in the middle of Apply.
func Run(ctx context.Context, src contracts.EventSource, sink contracts.NoteSink, opts ...Option) (err error) {
	o := applyDefaultOptions(opts...)
	log := o.Logger

	defer multierr.AppendInvoke(&err, multierr.Invoke(sink.Release))

	var applied, skipped int
	started := time.Now()
	defer func() {
		log.Info("Dispatch finished",
			log.Field().Int("applied", applied),
			log.Field().Int("skipped", skipped),
			log.Field().Duration("elapsed", time.Since(started)))
	}()

	if err = sink.Reset(); err != nil {
		return fmt.Errorf("initial reset: %w", err)
	}

	for {
		if ctx.Err() != nil {
			log.Info("Interrupted, exiting")
			return nil
		}

		ev, nerr := src.Next(ctx)
		switch {
		case nerr == nil:
		case errors.Is(nerr, io.EOF):
			log.Info("Event source exhausted")
			return nil
		case ctx.Err() != nil:
			log.Info("Interrupted, exiting")
			return nil
		default:
			return fmt.Errorf("event source: %w", nerr)
		}

		if ev.TimeOffset > 0 {
			if perr := o.Pace(ctx, ev.TimeOffset); perr != nil {
				log.Info("Interrupted, exiting")
				return nil
			}
		}

		if !ev.IsNote() {
			skipped++
			continue
		}
		if err = sink.Apply(ev); err != nil {
			return err
		}
		applied++
	}
}
