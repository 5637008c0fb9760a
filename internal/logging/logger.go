// Package logging builds the zap logger shared by the server, the discover CLI and the relayer.
package logging

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a sugared logger at the given level. dev switches to the console encoder
// used on desktops running the relayer.
func New(level string, dev bool) *zap.SugaredLogger {
	var lvl zapcore.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = zapcore.DebugLevel
	case "warn":
		lvl = zapcore.WarnLevel
	case "error":
		lvl = zapcore.ErrorLevel
	default:
		lvl = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	if dev {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := cfg.Build()
	if err != nil {
		// invalid encoder config is a programming error, fall back to a safe default
		logger = zap.NewExample()
	}
	return logger.Sugar()
}

// Nop is the logger handed to components in tests.
func Nop() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}
