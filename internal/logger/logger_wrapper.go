package logger

import (
	"fmt"
	"os"
	"time"

	"github.com/leandrodaf/relayorgan/sdk/contracts"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ZapLogger implements contracts.Logger on top of Uber's zap.
type ZapLogger struct {
	logger *zap.Logger
	level  zap.AtomicLevel
	config *zap.Config // nil when wrapping a caller-provided *zap.Logger
}

// NewZapLogger creates a JSON production logger writing to stderr.
func NewZapLogger() contracts.Logger {
	cfg := zap.NewProductionConfig()
	return build(cfg)
}

// NewConsoleLogger creates a human readable logger for interactive use.
func NewConsoleLogger() contracts.Logger {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	cfg.Sampling = nil
	return build(cfg)
}

// NewFromZap wraps an existing zap logger. SetDestination is not supported
// on the result.
func NewFromZap(l *zap.Logger) contracts.Logger {
	return &ZapLogger{
		logger: l.WithOptions(zap.AddCallerSkip(2)),
		level:  zap.NewAtomicLevelAt(zapcore.DebugLevel),
	}
}

// NewNopLogger discards everything.
func NewNopLogger() contracts.Logger {
	return NewFromZap(zap.NewNop())
}

func build(cfg zap.Config) *ZapLogger {
	cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	l, err := cfg.Build(zap.AddCallerSkip(2))
	if err != nil {
		// Only reachable with a broken output path; stderr always works.
		fmt.Fprintf(os.Stderr, "logger: %v, falling back to nop\n", err)
		l = zap.NewNop()
	}
	return &ZapLogger{logger: l, level: cfg.Level, config: &cfg}
}

// Info logs a message at the INFO level
func (z *ZapLogger) Info(msg string, fields ...contracts.Field) {
	z.log(zapcore.InfoLevel, msg, fields...)
}

// Error logs a message at the ERROR level
func (z *ZapLogger) Error(msg string, fields ...contracts.Field) {
	z.log(zapcore.ErrorLevel, msg, fields...)
}

// Debug logs a message at the DEBUG level
func (z *ZapLogger) Debug(msg string, fields ...contracts.Field) {
	z.log(zapcore.DebugLevel, msg, fields...)
}

// Warn logs a message at the WARN level
func (z *ZapLogger) Warn(msg string, fields ...contracts.Field) {
	z.log(zapcore.WarnLevel, msg, fields...)
}

// Fatal logs a message at the FATAL level and terminates the application
func (z *ZapLogger) Fatal(msg string, fields ...contracts.Field) {
	z.log(zapcore.FatalLevel, msg, fields...)
	os.Exit(1)
}

// Field returns a new instance of Field
func (z *ZapLogger) Field() contracts.Field {
	return &zapField{}
}

// SetLevel sets the logging level
func (z *ZapLogger) SetLevel(level contracts.LogLevel) {
	z.level.SetLevel(toZapLevel(level))
}

// SetDestination switches output between stderr and a file. Loggers built
// with NewFromZap keep their original destination.
func (z *ZapLogger) SetDestination(dest contracts.LogDestination, filePath ...string) {
	if z.config == nil {
		z.Warn("SetDestination is not supported on a wrapped zap logger")
		return
	}

	cfg := *z.config
	switch dest {
	case contracts.FileLog:
		if len(filePath) == 0 || filePath[0] == "" {
			z.Warn("SetDestination(file) called without a path; keeping current destination")
			return
		}
		cfg.OutputPaths = []string{filePath[0]}
		cfg.ErrorOutputPaths = []string{filePath[0]}
	default:
		cfg.OutputPaths = []string{"stderr"}
		cfg.ErrorOutputPaths = []string{"stderr"}
	}
	cfg.Level = z.level

	l, err := cfg.Build(zap.AddCallerSkip(2))
	if err != nil {
		z.Error("failed to switch log destination", z.Field().Error("error", err))
		return
	}
	_ = z.logger.Sync()
	z.logger = l
	z.config = &cfg
}

// Sync flushes buffered entries.
func (z *ZapLogger) Sync() error {
	return z.logger.Sync()
}

func (z *ZapLogger) log(level zapcore.Level, msg string, fields ...contracts.Field) {
	if !z.level.Enabled(level) {
		return
	}
	if ce := z.logger.Check(level, msg); ce != nil {
		ce.Write(toZapFields(fields)...)
	}
}

func toZapLevel(level contracts.LogLevel) zapcore.Level {
	switch level {
	case contracts.DebugLevel:
		return zapcore.DebugLevel
	case contracts.WarnLevel:
		return zapcore.WarnLevel
	case contracts.ErrorLevel:
		return zapcore.ErrorLevel
	case contracts.FatalLevel:
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}

func toZapFields(fields []contracts.Field) []zap.Field {
	if len(fields) == 0 {
		return nil
	}
	out := make([]zap.Field, 0, len(fields))
	for _, field := range fields {
		if f, ok := field.(*zapField); ok && f.key != "" {
			out = append(out, f.field)
		}
	}
	return out
}

// zapField implements contracts.Field
type zapField struct {
	key   string
	field zap.Field
}

func newField(f zap.Field) contracts.Field {
	return &zapField{key: f.Key, field: f}
}

func (f *zapField) Bool(key string, val bool) contracts.Field {
	return newField(zap.Bool(key, val))
}

func (f *zapField) Int(key string, val int) contracts.Field {
	return newField(zap.Int(key, val))
}

func (f *zapField) Float64(key string, val float64) contracts.Field {
	return newField(zap.Float64(key, val))
}

func (f *zapField) String(key string, val string) contracts.Field {
	return newField(zap.String(key, val))
}

func (f *zapField) Time(key string, val time.Time) contracts.Field {
	return newField(zap.Time(key, val))
}

func (f *zapField) Duration(key string, val time.Duration) contracts.Field {
	return newField(zap.Duration(key, val))
}

func (f *zapField) Int64(key string, val int64) contracts.Field {
	return newField(zap.Int64(key, val))
}

func (f *zapField) Error(key string, val error) contracts.Field {
	return newField(zap.NamedError(key, val))
}

func (f *zapField) Uint64(key string, val uint64) contracts.Field {
	return newField(zap.Uint64(key, val))
}

func (f *zapField) Uint8(key string, val uint8) contracts.Field {
	return newField(zap.Uint8(key, val))
}

// Hex renders a byte the way register values are written in datasheets.
func (f *zapField) Hex(key string, val uint8) contracts.Field {
	return newField(zap.String(key, fmt.Sprintf("0x%02x", val)))
}

func (f *zapField) Strings(key string, val []string) contracts.Field {
	return newField(zap.Strings(key, val))
}
