// Package monitor checks every configured repository and notifies about the
// updates it finds, once or on a schedule.
package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/thiagokokada/gitmon-go/internal/config"
	"github.com/thiagokokada/gitmon-go/internal/git"
	"github.com/thiagokokada/gitmon-go/internal/notify"
	"github.com/thiagokokada/gitmon-go/internal/updates"
)

const defaultReloadDelay = 350 * time.Millisecond

type Option func(*Monitor)

// WithOpener replaces the function used to open repositories.
func WithOpener(open func(path string, backend git.Backend) (git.Repository, error)) Option {
	return func(m *Monitor) { m.open = open }
}

// WithHome sets the directory shown as "~" in notification titles.
func WithHome(home string) Option {
	return func(m *Monitor) { m.home = home }
}

func WithLocation(loc *time.Location) Option {
	return func(m *Monitor) { m.loc = loc }
}

// WithReloadDelay sets how long the configuration file must stay quiet
// before it is reloaded.
func WithReloadDelay(d time.Duration) Option {
	return func(m *Monitor) { m.reloadDelay = d }
}

type Monitor struct {
	mu  sync.RWMutex
	cfg *config.Config

	notifier    notify.Notifier
	open        func(path string, backend git.Backend) (git.Repository, error)
	load        func(path string) (*config.Config, error)
	home        string
	loc         *time.Location
	reloadDelay time.Duration
}

// Summary counts the outcome of one CheckAll pass.
type Summary struct {
	Checked int
	Updated int
	Failed  int
}

func New(cfg *config.Config, notifier notify.Notifier, opts ...Option) *Monitor {
	home, _ := os.UserHomeDir()
	m := &Monitor{
		cfg:         cfg,
		notifier:    notify.Serialized(notifier),
		open:        git.Open,
		load:        config.Load,
		home:        home,
		reloadDelay: defaultReloadDelay,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Config returns the configuration currently in use.
func (m *Monitor) Config() *config.Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg
}

func (m *Monitor) setConfig(cfg *config.Config) {
	m.mu.Lock()
	m.cfg = cfg
	m.mu.Unlock()
}

// CheckAll checks every repository once. A failing repository is logged and
// counted; only cancellation is returned as an error.
func (m *Monitor) CheckAll(ctx context.Context) (Summary, error) {
	cfg := m.Config()
	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}
	limiter := rate.NewLimiter(limit, 1)

	var g errgroup.Group
	g.SetLimit(max(cfg.CheckParallel, 1))
	var updated, failed atomic.Int32
	for _, repo := range cfg.Repos {
		g.Go(func() error {
			if err := limiter.Wait(ctx); err != nil {
				return err
			}
			found, err := m.CheckRepo(ctx, cfg, repo)
			switch {
			case err != nil && ctx.Err() != nil:
				return ctx.Err()
			case err != nil:
				failed.Add(1)
				slog.Warn("repository skipped",
					slog.String("repo", repo.Name),
					slog.String("path", repo.Path),
					slog.Any("error", err),
				)
			case found:
				updated.Add(1)
			}
			return nil
		})
	}
	err := g.Wait()
	summary := Summary{Checked: len(cfg.Repos), Updated: int(updated.Load()), Failed: int(failed.Load())}
	slog.Info("check cycle finished",
		slog.Int("repositories", summary.Checked),
		slog.Int("updated", summary.Updated),
		slog.Int("failed", summary.Failed),
	)
	return summary, err
}

// CheckRepo checks one repository and sends a notification when it has
// updates. It reports whether anything was found.
func (m *Monitor) CheckRepo(ctx context.Context, cfg *config.Config, repo config.Repo) (bool, error) {
	r, err := m.open(repo.Path, cfg.Backend)
	if err != nil {
		return false, err
	}
	det := updates.NewDetector(r, updates.Options{
		Remote:          repo.Remote,
		NotifyNewBranch: cfg.NotifyNewBranch,
		NotifyNewTag:    cfg.NotifyNewTag,
		AutoPull:        cfg.AutoPull,
		AutoDeleteStale: cfg.AutoDeleteStale,
		MaxNewCommits:   cfg.MaxNewCommits,
	})
	result, err := det.Check(ctx)
	if err != nil {
		return false, fmt.Errorf("check %s: %w", repo.Name, err)
	}
	if result.Empty() {
		slog.Info("no updates", slog.String("repo", repo.Name))
		return false, nil
	}

	title, message := updates.Render(repo.Name, r.Path(), result, updates.RenderOptions{
		MaxFiles: cfg.MaxFilesInfo,
		Home:     m.home,
		Location: m.loc,
	})
	n := notify.Notification{Title: title, Message: message, Icon: cfg.Icon, Dir: r.Path()}
	if err := m.notifier.Notify(ctx, n); err != nil {
		slog.Error("notification failed", slog.String("repo", repo.Name), slog.Any("error", err))
	}
	return true, nil
}

// Run checks immediately and then every check delay until ctx is done. The
// configuration file is reloaded between cycles when it changes; an invalid
// file keeps the previous configuration.
func (m *Monitor) Run(ctx context.Context) error {
	reloads := make(chan struct{}, 1)
	if file := m.Config().File; file != "" {
		w, err := watchConfig(file, m.reloadDelay, func() {
			select {
			case reloads <- struct{}{}:
			default:
			}
		})
		if err != nil {
			slog.Error("configuration reload disabled", slog.Any("error", err))
		} else {
			defer w.Close()
		}
	}

	delay := m.Config().CheckDelay
	slog.Info("scheduler started", slog.Duration("delay", delay))
	ticker := time.NewTicker(delay)
	defer ticker.Stop()
	for {
		if _, err := m.CheckAll(ctx); err != nil && ctx.Err() == nil {
			slog.Error("check cycle failed", slog.Any("error", err))
		}
	wait:
		for {
			select {
			case <-ctx.Done():
				slog.Info("scheduler stopped")
				return nil
			case <-ticker.C:
				break wait
			case <-reloads:
				if d := m.reload(); d != delay {
					delay = d
					ticker.Reset(delay)
					slog.Info("check delay changed", slog.Duration("delay", delay))
				}
			}
		}
	}
}

// reload re-reads the configuration file and returns the check delay in use
// afterwards.
func (m *Monitor) reload() time.Duration {
	cur := m.Config()
	if _, err := os.Stat(cur.File); err != nil {
		slog.Debug("configuration file missing, keeping current", slog.String("file", cur.File))
		return cur.CheckDelay
	}
	cfg, err := m.load(cur.File)
	if err != nil {
		slog.Error("configuration reload failed, keeping current",
			slog.String("file", cur.File),
			slog.Any("error", err),
		)
		return cur.CheckDelay
	}
	slog.Info("configuration reloaded", slog.String("file", cfg.File), slog.Int("repositories", len(cfg.Repos)))
	m.setConfig(cfg)
	return cfg.CheckDelay
}
