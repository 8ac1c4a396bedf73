package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/thiagokokada/gitmon-go/internal/discovery"
	"github.com/thiagokokada/gitmon-go/internal/git"
)

const (
	NotifierCommandLine = "command.line"
	NotifierDesktop     = "desktop"
	NotifierConsole     = "console"

	DefaultCommandLine = "notify-send --app-name=gitmon -i ${image} ${title} ${message}"
)

type Repo struct {
	ID     string `yaml:"id,omitempty"`
	Name   string `yaml:"name"`
	Path   string `yaml:"path"`
	Remote string `yaml:"remote"`
}

type Scan struct {
	ID    string `yaml:"id"`
	Name  string `yaml:"name"`
	Path  string `yaml:"path"`
	Depth int    `yaml:"depth"`
}

// Config is the typed, read-only view of a configuration file. Repos holds
// the declared repositories followed by the ones found under Scans.
type Config struct {
	File  string `yaml:"file"`
	Repos []Repo `yaml:"repositories"`
	Scans []Scan `yaml:"scan,omitempty"`

	NotifyNewBranch bool `yaml:"notify_new_branch"`
	NotifyNewTag    bool `yaml:"notify_new_tag"`
	AutoPull        bool `yaml:"auto_pull"`
	AutoDeleteStale bool `yaml:"auto_delete_stale"`
	MaxNewCommits   int  `yaml:"max_new_commits"`
	MaxFilesInfo    int  `yaml:"max_files_info"`

	BuiltinScheduler bool          `yaml:"scheduler_builtin"`
	CheckDelay       time.Duration `yaml:"check_delay"`
	CheckParallel    int           `yaml:"check_parallel"`
	RatePerSecond    float64       `yaml:"check_rate_per_second"`

	Backend git.Backend `yaml:"-"`

	NotifierType        string `yaml:"notifier_type"`
	CommandLine         string `yaml:"command_line_cmd,omitempty"`
	Icon                string `yaml:"notification_icon,omitempty"`
	StickyNotifications bool   `yaml:"sticky_notifications"`
	ConsoleColor        bool   `yaml:"console_color"`

	values map[string]string
}

// FromValues types the raw key/value pairs and applies defaults. It does not
// scan directories.
func FromValues(values map[string]string) (*Config, error) {
	r := reader{values: values}
	cfg := &Config{
		NotifyNewBranch:     r.boolean("notify.new.branch", true),
		NotifyNewTag:        r.boolean("notify.new.tag", true),
		AutoPull:            r.boolean("auto.pull", false),
		AutoDeleteStale:     r.boolean("auto.delete.stale", false),
		MaxNewCommits:       r.integer("max.new.commits", 5),
		MaxFilesInfo:        r.integer("max.files.info", 3),
		BuiltinScheduler:    r.boolean("scheduler.builtin", false),
		CheckDelay:          time.Duration(r.integer("check.delay.minutes", 5)) * time.Minute,
		CheckParallel:       r.integer("check.parallel", 1),
		RatePerSecond:       r.float("check.rate.per.second", 0),
		NotifierType:        r.str("notifier.type", NotifierCommandLine),
		CommandLine:         r.str("command.line.cmd", DefaultCommandLine),
		Icon:                ExpandHome(r.str("notification.icon", "")),
		StickyNotifications: r.boolean("desktop.sticky.notifications", r.boolean("growl.sticky.notifications", false)),
		ConsoleColor:        r.boolean("console.color", true),
		values:              values,
	}
	backend, err := git.BackendFromString(r.str("git.backend", ""))
	if err != nil {
		r.fail("git.backend", err)
	}
	cfg.Backend = backend

	for _, id := range idsWithSuffix(values, "repo", "path") {
		prefix := "repo." + id
		repo := Repo{
			ID:     id,
			Name:   r.str(prefix+".name", id),
			Path:   ExpandHome(r.str(prefix+".path", "")),
			Remote: r.str(prefix+".remote", git.DefaultRemote),
		}
		if repo.Path == "" {
			r.fail(prefix+".path", errors.New("empty path"))
			continue
		}
		cfg.Repos = append(cfg.Repos, repo)
	}
	for _, id := range idsWithSuffix(values, "scan", "path") {
		prefix := "scan." + id
		scan := Scan{
			ID:    id,
			Name:  r.str(prefix+".name", id),
			Path:  ExpandHome(r.str(prefix+".path", "")),
			Depth: r.integer(prefix+".depth", discovery.DefaultDepth),
		}
		if scan.Path == "" {
			r.fail(prefix+".path", errors.New("empty path"))
			continue
		}
		cfg.Scans = append(cfg.Scans, scan)
	}

	if cfg.CheckDelay <= 0 {
		r.fail("check.delay.minutes", errors.New("must be positive"))
	}
	if cfg.CheckParallel < 1 {
		r.fail("check.parallel", errors.New("must be at least 1"))
	}
	if cfg.RatePerSecond < 0 {
		r.fail("check.rate.per.second", errors.New("must not be negative"))
	}
	if err := errors.Join(r.errs...); err != nil {
		return nil, err
	}
	return cfg, nil
}

// resolveRepos appends the repositories found under the scan roots.
func (c *Config) resolveRepos() error {
	for _, scan := range c.Scans {
		slog.Info("scanning for repositories", slog.String("path", scan.Path), slog.Int("depth", scan.Depth))
		found, err := discovery.Scan(scan.Path, scan.Name, scan.Depth)
		if err != nil {
			slog.Warn("scan failed", slog.String("scan", scan.ID), slog.Any("error", err))
			continue
		}
		for _, repo := range found {
			c.Repos = append(c.Repos, Repo{Name: repo.Name, Path: repo.Path, Remote: git.DefaultRemote})
		}
	}
	if len(c.Repos) == 0 {
		return ErrNoRepositories
	}
	slog.Info("configuration OK", slog.Int("repositories", len(c.Repos)))
	return nil
}

// Get returns the raw value of key after substitution.
func (c *Config) Get(key string) (string, bool) {
	v, ok := c.values[key]
	return v, ok
}

// YAML renders the effective configuration.
func (c *Config) YAML() ([]byte, error) {
	type view struct {
		Config  `yaml:",inline"`
		Backend string `yaml:"git_backend"`
	}
	return yaml.Marshal(view{Config: *c, Backend: c.Backend.String()})
}

type reader struct {
	values map[string]string
	errs   []error
}

func (r *reader) fail(key string, err error) {
	r.errs = append(r.errs, fmt.Errorf("%w: %s: %w", ErrInvalid, key, err))
}

func (r *reader) str(key, def string) string {
	if v, ok := r.values[key]; ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return def
}

func (r *reader) integer(key string, def int) int {
	v, ok := r.values[key]
	if !ok || strings.TrimSpace(v) == "" {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		r.fail(key, fmt.Errorf("%q is not a number", v))
		return def
	}
	return n
}

func (r *reader) boolean(key string, def bool) bool {
	d := 0
	if def {
		d = 1
	}
	return r.integer(key, d) != 0
}

func (r *reader) float(key string, def float64) float64 {
	v, ok := r.values[key]
	if !ok || strings.TrimSpace(v) == "" {
		return def
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		r.fail(key, fmt.Errorf("%q is not a number", v))
		return def
	}
	return f
}
