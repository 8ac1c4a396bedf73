// Package logging routes log/slog through zap.
package logging

import (
	"io"
	"log/slog"

	"github.com/kr/pretty"
	"go.uber.org/zap"
	"go.uber.org/zap/exp/zapslog"
	"go.uber.org/zap/zapcore"
)

// Level maps the CLI verbosity flags to a level: errors only by default,
// progress and warnings with verbose, everything with debug.
func Level(verbose, debug bool) zapcore.Level {
	switch {
	case debug:
		return zapcore.DebugLevel
	case verbose:
		return zapcore.InfoLevel
	default:
		return zapcore.ErrorLevel
	}
}

// New returns a slog logger writing zap console output to w.
func New(w io.Writer, level zapcore.Level) *slog.Logger {
	enc := zap.NewDevelopmentEncoderConfig()
	enc.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05")
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(enc),
		zapcore.Lock(zapcore.AddSync(w)),
		zap.NewAtomicLevelAt(level),
	)
	return slog.New(zapslog.NewHandler(core, zapslog.WithCaller(level == zapcore.DebugLevel)))
}

// Setup installs the default slog logger.
func Setup(w io.Writer, verbose, debug bool) *slog.Logger {
	logger := New(w, Level(verbose, debug))
	slog.SetDefault(logger)
	return logger
}

type dump struct{ v any }

func (d dump) LogValue() slog.Value {
	return slog.StringValue(pretty.Sprint(d.v))
}

// Dump is an attribute holding a pretty-printed v. Formatting only happens
// when the record is actually emitted.
func Dump(key string, v any) slog.Attr {
	return slog.Any(key, dump{v: v})
}
