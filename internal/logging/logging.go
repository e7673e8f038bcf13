// Package logging sets up the process-wide structured logger: JSON to a
// rotating file sink, optionally teed to stdout for interactive runs. The
// engine writes one log line per rotation, per failed job, and per trigger
// alert; it writes no per-tick summary line.
package logging

import (
	"os"
	"path/filepath"

	"github.com/natefinch/lumberjack"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config controls where logs land and whether they're also teed to stdout.
type Config struct {
	// Dir is the directory log files are written into. Empty disables the
	// file sink entirely (stdout-only, for short-lived CLI invocations).
	Dir string
	// Console tees a human-readable encoding to stdout in addition to the
	// JSON file sink.
	Console bool
	// Level is the minimum level logged; defaults to info if unset.
	Level zapcore.Level
}

// New builds a *zap.Logger per cfg. The returned logger is also installed
// as the process-wide default via zap.ReplaceGlobals so provider and
// engine code that reaches for zap.L() gets the same sinks.
func New(cfg Config) (*zap.Logger, error) {
	level := cfg.Level
	encCfg := zapcore.EncoderConfig{
		TimeKey:      "ts",
		LevelKey:     "level",
		MessageKey:   "msg",
		CallerKey:    "caller",
		EncodeTime:   zapcore.ISO8601TimeEncoder,
		EncodeLevel:  zapcore.LowercaseLevelEncoder,
		EncodeCaller: zapcore.ShortCallerEncoder,
	}

	var cores []zapcore.Core

	if cfg.Dir != "" {
		if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
			return nil, err
		}
		fileSink := &lumberjack.Logger{
			Filename:   filepath.Join(cfg.Dir, "rotatord.log"),
			MaxSize:    50, // MB
			MaxBackups: 7,
			MaxAge:     14, // days
			Compress:   true,
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(fileSink), level))
	}

	if cfg.Console || cfg.Dir == "" {
		cores = append(cores, zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(os.Stdout), level))
	}

	z := zap.New(zapcore.NewTee(cores...), zap.AddCaller())
	zap.ReplaceGlobals(z)
	return z, nil
}
