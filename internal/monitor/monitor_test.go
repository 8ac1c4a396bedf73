package monitor

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thiagokokada/gitmon-go/internal/config"
	"github.com/thiagokokada/gitmon-go/internal/git"
	"github.com/thiagokokada/gitmon-go/internal/gittest"
	"github.com/thiagokokada/gitmon-go/internal/notify"
)

type recorder struct {
	mu   sync.Mutex
	sent []notify.Notification
	err  error
}

func (r *recorder) Notify(_ context.Context, n notify.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
	return r.err
}

func (r *recorder) all() []notify.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]notify.Notification(nil), r.sent...)
}

func baseConfig(repos ...config.Repo) *config.Config {
	return &config.Config{
		Repos:           repos,
		NotifyNewBranch: true,
		NotifyNewTag:    true,
		MaxNewCommits:   5,
		MaxFilesInfo:    3,
		CheckDelay:      time.Minute,
		CheckParallel:   2,
	}
}

func TestCheckAll_IsolatesFailures(t *testing.T) {
	upstream := gittest.Init(t, "upstream")
	upstream.Commit("README.md", "hello\n", "Initial commit")
	clone := upstream.Clone("clone")
	upstream.Commit("feature.go", "package feature\n", "Add feature")

	cfg := baseConfig(
		config.Repo{Name: "broken", Path: filepath.Join(t.TempDir(), "missing"), Remote: git.DefaultRemote},
		config.Repo{Name: "proj", Path: clone.Dir, Remote: git.DefaultRemote},
	)
	rec := &recorder{}
	m := New(cfg, rec, WithHome(""), WithLocation(time.UTC))

	summary, err := m.CheckAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Summary{Checked: 2, Updated: 1, Failed: 1}, summary)

	sent := rec.all()
	require.Len(t, sent, 1)
	assert.Equal(t, "proj\n"+clone.Dir, sent[0].Title)
	assert.Equal(t, clone.Dir, sent[0].Dir)
	assert.Contains(t, sent[0].Message, "[main]\n----------\n")
	assert.Contains(t, sent[0].Message, "Alice: Add feature\nFiles:\n[1+ 0-] feature.go")

	summary, err = m.CheckAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Summary{Checked: 2, Updated: 0, Failed: 1}, summary)
	assert.Len(t, rec.all(), 1, "a second pass must not report the same commits")
}

func TestCheckAll_ConsoleNotifier(t *testing.T) {
	upstream := gittest.Init(t, "upstream")
	upstream.Commit("README.md", "hello\n", "Initial commit")
	clone := upstream.Clone("clone")
	upstream.Git("tag", "v0.1")

	var buf bytes.Buffer
	m := New(baseConfig(config.Repo{Name: "proj", Path: clone.Dir, Remote: git.DefaultRemote}),
		&notify.Console{Out: &buf}, WithHome(filepath.Dir(clone.Dir)), WithLocation(time.UTC))

	_, err := m.CheckAll(context.Background())
	require.NoError(t, err)
	want := "== proj @ ~" + string(filepath.Separator) + "clone ==\n" +
		"[v0.1] (New tag)\n----------\n2024-01-01 12:01:00\nInitial commit\n\n"
	assert.Equal(t, want, buf.String())
}

func TestCheckAll_NotifierErrorIsLogged(t *testing.T) {
	upstream := gittest.Init(t, "upstream")
	upstream.Commit("README.md", "hello\n", "Initial commit")
	clone := upstream.Clone("clone")
	upstream.Commit("README.md", "hello again\n", "Update")

	rec := &recorder{err: errors.New("no display")}
	m := New(baseConfig(config.Repo{Name: "proj", Path: clone.Dir, Remote: git.DefaultRemote}), rec)
	summary, err := m.CheckAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Updated)
	assert.Len(t, rec.all(), 1)
}

func TestCheckAll_Cancelled(t *testing.T) {
	t.Parallel()
	var opened atomic.Int32
	open := func(string, git.Backend) (git.Repository, error) {
		opened.Add(1)
		return nil, git.ErrRepositoryUnreachable
	}
	cfg := baseConfig(config.Repo{Name: "a", Path: "/a"}, config.Repo{Name: "b", Path: "/b"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(cfg, &recorder{}, WithOpener(open)).CheckAll(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, opened.Load())
}

func TestCheckAll_RespectsParallelLimit(t *testing.T) {
	t.Parallel()
	var active, peak atomic.Int32
	open := func(string, git.Backend) (git.Repository, error) {
		n := active.Add(1)
		defer active.Add(-1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		return nil, git.ErrRepositoryUnreachable
	}
	cfg := baseConfig()
	cfg.CheckParallel = 2
	for _, name := range []string{"a", "b", "c", "d", "e", "f"} {
		cfg.Repos = append(cfg.Repos, config.Repo{Name: name, Path: "/" + name})
	}

	summary, err := New(cfg, &recorder{}, WithOpener(open)).CheckAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 6, summary.Failed)
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestRun_ChecksOnEveryTick(t *testing.T) {
	t.Parallel()
	var opened atomic.Int32
	open := func(string, git.Backend) (git.Repository, error) {
		opened.Add(1)
		return nil, git.ErrRepositoryUnreachable
	}
	cfg := baseConfig(config.Repo{Name: "a", Path: "/a"})
	cfg.CheckDelay = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- New(cfg, &recorder{}, WithOpener(open)).Run(ctx) }()

	require.Eventually(t, func() bool { return opened.Load() >= 3 }, 5*time.Second, 5*time.Millisecond)
	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop after cancellation")
	}
}

func TestRun_ReloadsConfiguration(t *testing.T) {
	t.Parallel()
	file := filepath.Join(t.TempDir(), "gitmon.conf")
	write := func(content string) {
		t.Helper()
		require.NoError(t, os.WriteFile(file, []byte(content), 0o644))
	}
	write("repo.a.path=/nonexistent/a\ncheck.delay.minutes=60\n")
	cfg, err := config.Load(file)
	require.NoError(t, err)

	var opened atomic.Int32
	open := func(string, git.Backend) (git.Repository, error) {
		opened.Add(1)
		return nil, git.ErrRepositoryUnreachable
	}
	m := New(cfg, &recorder{}, WithOpener(open), WithReloadDelay(10*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	require.Eventually(t, func() bool { return opened.Load() >= 1 }, 5*time.Second, 5*time.Millisecond)
	write("repo.b.path=/nonexistent/b\ncheck.delay.minutes=60\n")
	require.Eventually(t, func() bool {
		repos := m.Config().Repos
		return len(repos) == 1 && repos[0].Path == "/nonexistent/b"
	}, 5*time.Second, 10*time.Millisecond)

	write("repo.c.path=/nonexistent/c\nmax.new.commits=lots\n")
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, "/nonexistent/b", m.Config().Repos[0].Path, "invalid configuration must be ignored")

	cancel()
	require.NoError(t, <-done)
}
