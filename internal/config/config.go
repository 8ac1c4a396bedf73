// Package config loads the gitmon key=value configuration file.
package config

import (
	"bufio"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/joho/godotenv"
)

const (
	EnvVar          = "GITMON_CONF"
	DefaultFileName = ".gitmon.conf"
)

var (
	// ErrCreated means no configuration existed and a template was written.
	ErrCreated = errors.New("configuration created")
	// ErrInvalid means a value could not be interpreted.
	ErrInvalid = errors.New("invalid configuration")
	// ErrNoRepositories means neither repositories nor scan roots yielded
	// anything to track.
	ErrNoRepositories = errors.New("no repositories configured")
)

//go:embed gitmon.conf.example
var Template []byte

// DefaultPath returns $GITMON_CONF or ~/.gitmon.conf.
func DefaultPath() (string, error) {
	if p := strings.TrimSpace(os.Getenv(EnvVar)); p != "" {
		return ExpandHome(p), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("locate home directory: %w", err)
	}
	return filepath.Join(home, DefaultFileName), nil
}

// ExpandHome replaces a leading "~" with the user's home directory.
func ExpandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}

// Load reads the configuration at path, or at DefaultPath when path is
// empty. A missing file is replaced by the template and ErrCreated is
// returned.
func Load(path string) (*Config, error) {
	if path == "" {
		var err error
		if path, err = DefaultPath(); err != nil {
			return nil, err
		}
	}
	path = ExpandHome(path)

	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		if err := writeTemplate(path); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s", ErrCreated, path)
	}
	if err != nil {
		return nil, fmt.Errorf("open configuration: %w", err)
	}
	defer f.Close()

	slog.Info("loading configuration", slog.String("file", path))
	values, err := Parse(f, path)
	if err != nil {
		return nil, err
	}
	cfg, err := FromValues(values)
	if err != nil {
		return nil, err
	}
	cfg.File = path
	if err := cfg.resolveRepos(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func writeTemplate(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create configuration directory: %w", err)
	}
	if err := os.WriteFile(path, Template, 0o644); err != nil {
		return fmt.Errorf("write configuration template: %w", err)
	}
	return nil
}

// Parse reads key=value lines. Values are interpreted with dotenv rules
// (quotes, escapes, inline comments); malformed lines are logged and skipped.
// ${key} references are then substituted once.
func Parse(r io.Reader, name string) (map[string]string, error) {
	values := map[string]string{}
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, raw, ok := strings.Cut(line, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			slog.Error("bad configuration line", slog.String("file", name), slog.Int("line", lineNo), slog.String("text", line))
			continue
		}
		value, err := parseValue(raw)
		if err != nil {
			slog.Error("bad configuration value", slog.String("file", name), slog.Int("line", lineNo), slog.String("key", key), slog.Any("error", err))
			continue
		}
		values[key] = value
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return substitute(values), nil
}

// parseValue runs the value alone through godotenv; keys are split by hand
// because gitmon keys contain characters dotenv names do not allow.
func parseValue(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	env, err := godotenv.Unmarshal("value=" + raw)
	if err != nil {
		return "", err
	}
	return env["value"], nil
}

var referencePattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// substitute replaces ${key} with the value of key. Unknown references are
// kept so notifier placeholders like ${title} survive.
func substitute(values map[string]string) map[string]string {
	out := make(map[string]string, len(values))
	for key, value := range values {
		out[key] = referencePattern.ReplaceAllStringFunc(value, func(ref string) string {
			name := ref[2 : len(ref)-1]
			if v, ok := values[name]; ok && name != key {
				return v
			}
			return ref
		})
	}
	return out
}

// idsWithSuffix returns the sorted <id> of every "<prefix>.<id>.<suffix>" key.
func idsWithSuffix(values map[string]string, prefix, suffix string) []string {
	var ids []string
	for key := range values {
		rest, ok := strings.CutPrefix(key, prefix+".")
		if !ok {
			continue
		}
		id, ok := strings.CutSuffix(rest, "."+suffix)
		if !ok || id == "" {
			continue
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
