package organ

import (
	"context"
	"time"

	"github.com/leandrodaf/relayorgan/internal/logger"
	"github.com/leandrodaf/relayorgan/sdk/contracts"
)

// DefaultBusTimeout bounds every single register read or write.
const DefaultBusTimeout = 500 * time.Millisecond

// Mismatch describes a relay register that did not latch the intended mask.
type Mismatch struct {
	Board   int
	Address byte
	Want    uint8
	Got     uint8
}

// Options configures the controller and the dispatch loop.
type Options struct {
	Logger     contracts.Logger
	BusTimeout time.Duration
	OnMismatch func(Mismatch)
	Pace       func(ctx context.Context, d time.Duration) error
}

// Option is a function that modifies Options.
type Option func(*Options)

// WithLogger sets the logger.
func WithLogger(l contracts.Logger) Option {
	return func(o *Options) {
		o.Logger = l
	}
}

// WithBusTimeout bounds each bus operation. Zero or negative keeps the default.
func WithBusTimeout(d time.Duration) Option {
	return func(o *Options) {
		o.BusTimeout = d
	}
}

// WithMismatchHandler registers a callback invoked after every failed
// read-back verification, in addition to the warning log line.
func WithMismatchHandler(fn func(Mismatch)) Option {
	return func(o *Options) {
		o.OnMismatch = fn
	}
}

// WithPacing replaces the interruptible sleep used between events.
func WithPacing(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(o *Options) {
		o.Pace = fn
	}
}

// applyDefaultOptions fills in whatever the caller left unset.
func applyDefaultOptions(opts ...Option) Options {
	o := Options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.Logger == nil {
		o.Logger = logger.NewZapLogger()
	}
	if o.BusTimeout <= 0 {
		o.BusTimeout = DefaultBusTimeout
	}
	if o.OnMismatch == nil {
		o.OnMismatch = func(Mismatch) {}
	}
	if o.Pace == nil {
		o.Pace = sleepContext
	}
	return o
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
