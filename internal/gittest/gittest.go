// Package gittest builds throwaway git repositories for tests.
package gittest

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// Epoch is the committer time of the first commit made by a Repo.
var Epoch = time.Date(2024, time.January, 1, 12, 0, 0, 0, time.UTC)

type Repo struct {
	t     testing.TB
	home  string
	clock time.Time
	Dir   string
}

// RequireGit skips t when no git executable is available.
func RequireGit(t testing.TB) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git executable not available")
	}
}

// Init creates an empty repository with a "main" branch.
func Init(t testing.TB, name string) *Repo {
	t.Helper()
	RequireGit(t)
	root := t.TempDir()
	r := &Repo{t: t, home: filepath.Join(root, "home"), clock: Epoch, Dir: filepath.Join(root, name)}
	if err := os.MkdirAll(r.home, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	if err := os.MkdirAll(r.Dir, 0o755); err != nil {
		t.Fatalf("mkdir repo: %v", err)
	}
	r.Git("init", "-q", "-b", "main")
	return r
}

// Clone clones r next to it and returns the clone, whose "origin" is r.
func (r *Repo) Clone(name string) *Repo {
	r.t.Helper()
	dst := filepath.Join(filepath.Dir(r.Dir), name)
	r.Git("clone", "-q", r.Dir, dst)
	return &Repo{t: r.t, home: r.home, clock: r.clock, Dir: dst}
}

// Git runs git in the repository and returns its trimmed stdout.
func (r *Repo) Git(args ...string) string {
	r.t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = r.Dir
	if args[0] == "clone" {
		cmd.Dir = filepath.Dir(r.Dir)
	}
	when := fmt.Sprintf("%d +0000", r.clock.Unix())
	cmd.Env = append(os.Environ(),
		"HOME="+r.home,
		"GIT_CONFIG_NOSYSTEM=1",
		"GIT_TERMINAL_PROMPT=0",
		"GIT_AUTHOR_NAME=Alice",
		"GIT_AUTHOR_EMAIL=alice@example.com",
		"GIT_COMMITTER_NAME=Alice",
		"GIT_COMMITTER_EMAIL=alice@example.com",
		"GIT_AUTHOR_DATE="+when,
		"GIT_COMMITTER_DATE="+when,
	)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		r.t.Fatalf("git %v failed: %v\nOutput: %s", args, err, stderr.String())
	}
	return strings.TrimSpace(stdout.String())
}

// Commit writes content to file, commits it and returns the new hash. Each
// commit is one minute after the previous one.
func (r *Repo) Commit(file, content, message string) string {
	r.t.Helper()
	r.clock = r.clock.Add(time.Minute)
	full := filepath.Join(r.Dir, file)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		r.t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		r.t.Fatalf("write %s: %v", file, err)
	}
	r.Git("add", "--", file)
	r.Git("commit", "-q", "-m", message)
	return r.Git("rev-parse", "HEAD")
}

// Now returns the time of the most recent commit made through r.
func (r *Repo) Now() time.Time {
	return r.clock
}
