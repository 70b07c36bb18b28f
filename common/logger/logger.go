// Package logger provides the unified logging facade for the engine.
// All packages log through the leveled printf-style functions below; the
// backing zap logger can be swapped once at startup.
package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var sugar *zap.SugaredLogger

func init() {
	l, err := zap.NewProduction(zap.WithCaller(false))
	if err != nil {
		l = zap.NewNop()
	}
	sugar = l.Sugar()
}

// Configure replaces the backing logger. Intended for process startup.
func Configure(l *zap.Logger) {
	if l != nil {
		sugar = l.Sugar()
	}
}

// Development switches to a human-readable console logger at debug level.
func Development() {
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	if l, err := cfg.Build(zap.WithCaller(false)); err == nil {
		sugar = l.Sugar()
	}
}

// Debugf logs a debug message
func Debugf(format string, args ...interface{}) {
	sugar.Debugf(format, args...)
}

// Infof logs an info message
func Infof(format string, args ...interface{}) {
	sugar.Infof(format, args...)
}

// Warnf logs a warning message
func Warnf(format string, args ...interface{}) {
	sugar.Warnf(format, args...)
}

// Errorf logs an error message
func Errorf(format string, args ...interface{}) {
	sugar.Errorf(format, args...)
}

// Sync flushes buffered log entries.
func Sync() {
	_ = sugar.Sync()
}
