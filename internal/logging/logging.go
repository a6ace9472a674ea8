// Package logging builds the zap loggers used by the service and the CLI.
package logging

import (
	"github.com/hyp3rd/ewrap"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a logger at level ("debug", "info", "warn", "error") using the
// production JSON encoder, or the development console encoder when format is
// "console".
func New(level, format string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, ewrap.Wrapf(err, "log level %q", level)
	}

	var cfg zap.Config
	switch format {
	case "", "json":
		cfg = zap.NewProductionConfig()
	case "console":
		cfg = zap.NewDevelopmentConfig()
	default:
		return nil, ewrap.Newf("unknown log format %q", format)
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.DisableStacktrace = lvl > zapcore.DebugLevel
	cfg.OutputPaths = []string{"stderr"}

	logger, err := cfg.Build()
	if err != nil {
		return nil, ewrap.Wrap(err, "build logger")
	}
	return logger, nil
}

// Nop returns a logger that discards everything; handy in tests.
func Nop() *zap.Logger { return zap.NewNop() }
