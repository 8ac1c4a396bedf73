package cmd

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thiagokokada/gitmon-go/internal/buildinfo"
	"github.com/thiagokokada/gitmon-go/internal/config"
	"github.com/thiagokokada/gitmon-go/internal/gittest"
)

func runArgs(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), args, &stdout, &stderr)
	return stdout.String(), err
}

func writeConfig(t *testing.T, lines ...string) string {
	t.Helper()
	file := filepath.Join(t.TempDir(), "gitmon.conf")
	require.NoError(t, os.WriteFile(file, []byte(strings.Join(lines, "\n")+"\n"), 0o644))
	return file
}

func TestExitCode(t *testing.T) {
	t.Parallel()
	tests := []struct {
		err  error
		want int
	}{
		{err: nil, want: 0},
		{err: errors.New("boom"), want: 1},
		{err: config.ErrNoRepositories, want: 2},
		{err: errors.Join(errors.New("x"), config.ErrInvalid), want: 2},
		{err: &ExitError{Code: 3, Err: errors.New("custom")}, want: 3},
	}
	for _, tt := range tests {
		if got := ExitCode(tt.err); got != tt.want {
			t.Fatalf("ExitCode(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestRun_Version(t *testing.T) {
	out, err := runArgs(t, "--version")
	require.NoError(t, err)
	assert.Equal(t, buildinfo.VersionWithTags()+"\n", out)
}

func TestRun_UnknownFlag(t *testing.T) {
	_, err := runArgs(t, "--bogus")
	require.Error(t, err)
	assert.Equal(t, 2, ExitCode(err))
}

func TestRun_FirstRun(t *testing.T) {
	file := filepath.Join(t.TempDir(), "conf", "gitmon.conf")
	out, err := runArgs(t, "-c", file)
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration not found! "+file+" was created for you.")
	assert.Contains(t, out, "*/5 * * * * gitmon")

	written, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Equal(t, config.Template, written)

	_, err = runArgs(t, "-c", file)
	require.ErrorIs(t, err, config.ErrNoRepositories)
	assert.Equal(t, 2, ExitCode(err))
}

func TestRun_InvalidConfiguration(t *testing.T) {
	file := writeConfig(t, "repo.a.path=/src/a", "max.new.commits=many")
	_, err := runArgs(t, "-c", file)
	require.ErrorIs(t, err, config.ErrInvalid)
	assert.Equal(t, 2, ExitCode(err))

	file = writeConfig(t, "repo.a.path=/src/a", "notifier.type=pigeon")
	_, err = runArgs(t, "-c", file)
	require.ErrorIs(t, err, config.ErrInvalid)
	assert.Equal(t, 2, ExitCode(err))
}

func TestRun_PrintConfig(t *testing.T) {
	file := writeConfig(t, "repo.a.path=/src/a", "repo.a.name=Alpha")
	out, err := runArgs(t, "-c", file, "--print-config")
	require.NoError(t, err)
	assert.Contains(t, out, "name: Alpha")
	assert.Contains(t, out, "file: "+file)
}

func TestRun_Selftest(t *testing.T) {
	file := writeConfig(t, "repo.a.path=/src/a", "notifier.type=console")
	out, err := runArgs(t, "-c", file, "--selftest")
	require.NoError(t, err)
	assert.Equal(t, "== GitMon Test ==\nIt Works!\n\n", out)
}

func TestRun_CheckOnce(t *testing.T) {
	upstream := gittest.Init(t, "upstream")
	upstream.Commit("README.md", "hello\n", "Initial commit")
	clone := upstream.Clone("clone")
	upstream.Commit("README.md", "hello\nworld\n", "Say more")

	file := writeConfig(t,
		"repo.proj.path="+clone.Dir,
		"repo.proj.name=Project",
		"notifier.type=console",
	)
	out, err := runArgs(t, "-c", file)
	require.NoError(t, err)
	assert.Contains(t, out, "[main]\n----------\n")
	assert.Contains(t, out, "Alice: Say more\nFiles:\n[1+ 0-] README.md\n")

	out, err = runArgs(t, "-c", file)
	require.NoError(t, err)
	assert.Empty(t, out)
}
