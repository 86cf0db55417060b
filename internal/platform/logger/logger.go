// Package logger provides structured logging for the game server.
// Every engine decision worth auditing should be traceable through this.
package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger provides structured logging with context.
type Logger struct {
	z *zap.Logger
}

// NewLogger creates a production logger at the given level ("debug", "info", "warn", "error").
// Unknown levels fall back to info.
func NewLogger(level string) *Logger {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder

	z, err := cfg.Build()
	if err != nil {
		z = zap.NewExample()
	}
	return &Logger{z: z.Named("wellbuilder")}
}

// New wraps an existing zap logger, e.g. an observer core in tests.
func New(z *zap.Logger) *Logger {
	return &Logger{z: z}
}

// NewNop returns a logger that discards everything. Used by tests and tools.
func NewNop() *Logger {
	return &Logger{z: zap.NewNop()}
}

// With returns a child logger carrying the given fields.
func (l *Logger) With(fields ...zap.Field) *Logger {
	return &Logger{z: l.z.With(fields...)}
}

// Debug logs high volume diagnostics such as passive ticks.
func (l *Logger) Debug(msg string, fields ...zap.Field) {
	l.z.Debug(msg, fields...)
}

// Info logs informational messages.
func (l *Logger) Info(msg string, fields ...zap.Field) {
	l.z.Info(msg, fields...)
}

// Warn logs warning messages.
func (l *Logger) Warn(msg string, fields ...zap.Field) {
	l.z.Warn(msg, fields...)
}

// Error logs error messages.
func (l *Logger) Error(msg string, fields ...zap.Field) {
	l.z.Error(msg, fields...)
}

// Event logs a game event for later auditing.
func (l *Logger) Event(eventType string, actorID string, details string) {
	l.z.Info("event",
		zap.String("type", eventType),
		zap.String("actor", actorID),
		zap.String("details", details),
	)
}

// Sync flushes buffered entries.
func (l *Logger) Sync() error {
	return l.z.Sync()
}
