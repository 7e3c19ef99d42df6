// Package logging builds the process logger.
package logging

import (
	"os"

	pkgerrors "github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config describes the logger to build.
type Config struct {
	Level        string // debug, info, warn, error; empty means info
	Development  bool   // console encoding and stack traces on warn
	EnableCaller bool
}

// New creates a logger writing to stderr.
func New(cfg Config) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if cfg.Level != "" {
		l, err := zapcore.ParseLevel(cfg.Level)
		if err != nil {
			return nil, pkgerrors.WithMessagef(err, "log level %q", cfg.Level)
		}
		level = l
	}

	return zap.New(newCore(cfg, level, zapcore.Lock(os.Stderr)), options(cfg)...), nil
}

func newCore(cfg Config, level zapcore.Level, ws zapcore.WriteSyncer) zapcore.Core {
	var enc zapcore.Encoder
	if cfg.Development {
		ec := zap.NewDevelopmentEncoderConfig()
		ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
		enc = zapcore.NewConsoleEncoder(ec)
	} else {
		enc = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	}
	return zapcore.NewCore(enc, ws, level)
}

func options(cfg Config) []zap.Option {
	var opts []zap.Option
	if cfg.EnableCaller {
		opts = append(opts, zap.AddCaller())
	}
	if cfg.Development {
		opts = append(opts, zap.Development(), zap.AddStacktrace(zapcore.WarnLevel))
	} else {
		opts = append(opts, zap.AddStacktrace(zapcore.ErrorLevel))
	}
	return opts
}
