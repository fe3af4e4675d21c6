// Package logger configures the structured logger used across the agent.
package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps a zap.Logger so initialization can be deferred until the
// configured level is known.
type Logger struct {
	Log *zap.Logger
}

// New returns a Logger with a no-op core; call Init before use.
func New() *Logger {
	return &Logger{Log: zap.NewNop()}
}

// Init replaces the core with a production logger at the given level
// ("debug", "info", "warn", "error").
func (l *Logger) Init(level string) error {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("parse log level: %w", err)
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	log, err := cfg.Build()
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	l.Log = log
	return nil
}
