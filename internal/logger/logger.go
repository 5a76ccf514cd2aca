// Package logger provides structured logging, wrapping zerolog the way the
// teacher wraps its logging backend in internal/infrastructure/logger.
package logger

import (
	"os"

	"github.com/rs/zerolog"

	"github.com/kleon1024/mini-feeds/internal/config"
)

// Logger wraps zerolog.Logger with the With/Info/Warn/Error/Debug surface
// the rest of the service calls.
type Logger struct {
	zl zerolog.Logger
}

// New builds a Logger from cfg: JSON output in production, a human-readable
// console writer when Format is "console".
func New(cfg config.LoggingConfig) *Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	var w = os.Stdout
	var zl zerolog.Logger
	if cfg.Format == "console" {
		zl = zerolog.New(zerolog.ConsoleWriter{Out: w}).Level(level).With().Timestamp().Logger()
	} else {
		zl = zerolog.New(w).Level(level).With().Timestamp().Logger()
	}
	return &Logger{zl: zl}
}

// With returns a child logger carrying the given key/value pairs on every
// subsequent call.
func (l *Logger) With(kv ...any) *Logger {
	ctx := l.zl.With()
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		ctx = ctx.Interface(key, kv[i+1])
	}
	return &Logger{zl: ctx.Logger()}
}

func (l *Logger) Debug(msg string, kv ...any) { l.event(l.zl.Debug(), kv).Msg(msg) }
func (l *Logger) Info(msg string, kv ...any)  { l.event(l.zl.Info(), kv).Msg(msg) }
func (l *Logger) Warn(msg string, kv ...any)  { l.event(l.zl.Warn(), kv).Msg(msg) }
func (l *Logger) Error(msg string, kv ...any) { l.event(l.zl.Error(), kv).Msg(msg) }

func (l *Logger) event(e *zerolog.Event, kv []any) *zerolog.Event {
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		e = e.Interface(key, kv[i+1])
	}
	return e
}

var defaultLogger = New(config.LoggingConfig{Level: "info", Format: "json"})

// Default returns the process-wide default logger.
func Default() *Logger { return defaultLogger }

// SetDefault replaces the process-wide default logger.
func SetDefault(l *Logger) { defaultLogger = l }

func Debug(msg string, kv ...any) { defaultLogger.Debug(msg, kv...) }
func Info(msg string, kv ...any)  { defaultLogger.Info(msg, kv...) }
func Warn(msg string, kv ...any)  { defaultLogger.Warn(msg, kv...) }
func Error(msg string, kv ...any) { defaultLogger.Error(msg, kv...) }
