package logging

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"
)

func TestLevel(t *testing.T) {
	t.Parallel()

	assert.Equal(t, zapcore.ErrorLevel, Level(false, false))
	assert.Equal(t, zapcore.InfoLevel, Level(true, false))
	assert.Equal(t, zapcore.DebugLevel, Level(false, true))
	assert.Equal(t, zapcore.DebugLevel, Level(true, true))
}

func TestNewFiltersByLevel(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := New(&buf, zapcore.InfoLevel)
	logger.Debug("hidden message")
	logger.Info("check finished", slog.String("repo", "gitmon"), slog.Int("updates", 2))

	out := buf.String()
	assert.NotContains(t, out, "hidden message")
	assert.Contains(t, out, "check finished")
	assert.Contains(t, out, "gitmon")
}

func TestDumpIsLazy(t *testing.T) {
	t.Parallel()

	type ref struct {
		Name string
		Hash string
	}
	var buf bytes.Buffer
	logger := New(&buf, zapcore.DebugLevel)
	logger.Debug("skipping ref", Dump("ref", ref{Name: "origin/main", Hash: "abc"}))
	assert.Contains(t, buf.String(), "skipping ref")
	assert.Contains(t, buf.String(), "origin/main")

	attr := Dump("ref", ref{Name: "x"})
	assert.Equal(t, slog.KindLogValuer, attr.Value.Kind())
}
