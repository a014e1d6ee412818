// Package logger configures the process-wide zap logger.
package logger

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Logger is the global logger instance. It is a no-op until Initialize is called.
	Logger *zap.SugaredLogger
	// JSONOutput records whether Initialize selected the JSON encoder.
	JSONOutput bool
)

func init() {
	Logger = zap.NewNop().Sugar()
}

// Options control logger construction.
type Options struct {
	// JSON selects machine-readable output instead of the console encoder.
	JSON bool
	// Level is one of debug, info, warn, error. Empty means info.
	Level string
	// File, when set, receives a JSON copy of every entry in addition to stderr.
	File string
}

// ParseLevel maps a level name to a zap level.
func ParseLevel(level string) (zapcore.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "", "info":
		return zap.InfoLevel, nil
	case "debug":
		return zap.DebugLevel, nil
	case "warn", "warning":
		return zap.WarnLevel, nil
	case "error":
		return zap.ErrorLevel, nil
	default:
		return zap.InfoLevel, fmt.Errorf("unknown log level: %s", level)
	}
}

// Initialize sets up the global logger. Console output goes to stderr so that
// stdout stays free for command results.
func Initialize(opts Options) error {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return err
	}

	var encoder zapcore.Encoder
	if opts.JSON {
		encoder = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	} else {
		cfg := zap.NewDevelopmentEncoderConfig()
		cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		cfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		encoder = zapcore.NewConsoleEncoder(cfg)
	}

	cores := []zapcore.Core{
		zapcore.NewCore(encoder, zapcore.Lock(os.Stderr), level),
	}

	if opts.File != "" {
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("opening log file: %w", err)
		}
		fileEncoder := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
		cores = append(cores, zapcore.NewCore(fileEncoder, zapcore.AddSync(f), level))
	}

	JSONOutput = opts.JSON
	Logger = zap.New(zapcore.NewTee(cores...)).Sugar()
	return nil
}

// Cleanup flushes any buffered log entries
func Cleanup() {
	if Logger != nil {
		_ = Logger.Sync()
	}
}

// ComponentLogger returns a named logger for a specific component.
func ComponentLogger(name string) *zap.SugaredLogger {
	return Logger.Named(name)
}
