// Package logging builds the zap logger shared by both binaries.
package logging

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

// Config selects the encoder, the minimum level and an optional rotating
// log file.
type Config struct {
	Format string
	Level  string
	File   string

	// Rotation settings, used only when File is set.
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// Logger is a zap logger that owns its rotating file, if any.
type Logger struct {
	*zap.Logger

	file *lumberjack.Logger
}

// New builds a logger writing to stdout and, when cfg.File is set, teeing
// JSON lines to a rotating file.
func New(cfg Config) (*Logger, error) {
	return build(cfg, zapcore.Lock(os.Stdout))
}

func build(cfg Config, out zapcore.WriteSyncer) (*Logger, error) {
	level := zapcore.InfoLevel

	if cfg.Level != "" {
		parsed, err := zapcore.ParseLevel(cfg.Level)
		if err != nil {
			return nil, fmt.Errorf("parse log level: %w", err)
		}

		level = parsed
	}

	var encoder zapcore.Encoder

	switch strings.ToLower(cfg.Format) {
	case "", FormatConsole:
		encCfg := zap.NewDevelopmentEncoderConfig()
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encCfg)
	case FormatJSON:
		encoder = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}

	cores := []zapcore.Core{zapcore.NewCore(encoder, out, level)}

	var file *lumberjack.Logger

	if cfg.File != "" {
		file = &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    orDefault(cfg.MaxSizeMB, 10),
			MaxBackups: orDefault(cfg.MaxBackups, 5),
			MaxAge:     orDefault(cfg.MaxAgeDays, 7),
		}

		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
			zapcore.AddSync(file),
			level,
		))
	}

	return &Logger{
		Logger: zap.New(zapcore.NewTee(cores...), zap.AddCaller()),
		file:   file,
	}, nil
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}

	return v
}

// Shutdown flushes buffered entries and closes the log file.
func (l *Logger) Shutdown() error {
	// Sync on a terminal stdout fails with EINVAL on some platforms.
	_ = l.Sync()

	if l.file != nil {
		return l.file.Close()
	}

	return nil
}
