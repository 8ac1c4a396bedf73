package git

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrRefUnreadable means a single ref could not be resolved to a commit.
	// Callers skip the ref and keep going.
	ErrRefUnreadable = errors.New("ref unreadable")
	// ErrRepositoryUnreachable means the repository could not be opened or
	// its remote could not be contacted.
	ErrRepositoryUnreachable = errors.New("repository unreachable")
	// ErrNoRemote means the requested remote is not configured.
	ErrNoRemote = errors.New("remote not configured")
)

const DefaultRemote = "origin"

// Repository is the capability the update detector needs from a local clone.
//
// The default implementation uses go-git, but the interface allows the git
// executable to be used instead without changing callers.
type Repository interface {
	Path() string

	// RemoteRefs lists the remote-tracking branches of remote and all local
	// tags, without contacting the remote.
	RemoteRefs(ctx context.Context, remote string) ([]Ref, error)
	// Fetch updates the remote-tracking refs and tags, returning the same
	// listing as RemoteRefs after the fetch.
	Fetch(ctx context.Context, remote string) ([]Ref, error)
	// Pull fast-forwards the current branch from remote.
	Pull(ctx context.Context, remote string) error
	// StaleRefs lists remote-tracking branches that no longer exist upstream.
	StaleRefs(ctx context.Context, remote string) ([]Ref, error)
	DeleteRef(ctx context.Context, ref Ref) error

	// Commit resolves hash to a commit, peeling annotated tags.
	Commit(ctx context.Context, hash string) (*Commit, error)
	// NameRev describes hash relative to the remote-tracking branches in the
	// style of git name-rev (remotes/origin/main~2), or "undefined".
	NameRev(ctx context.Context, hash string) (string, error)
	// FileStats returns per-file insertions and deletions against the first
	// parent.
	FileStats(ctx context.Context, hash string) ([]FileStat, error)
}

type Backend uint8

const (
	BackendNative Backend = iota
	BackendCLI
)

func (b Backend) String() string {
	if b == BackendCLI {
		return "cli"
	}
	return "native"
}

func BackendFromString(raw string) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "native", "go-git":
		return BackendNative, nil
	case "cli", "gitcli", "git":
		return BackendCLI, nil
	default:
		return BackendNative, fmt.Errorf("unknown git backend %q", raw)
	}
}

// Open opens the repository at path with the requested backend.
func Open(path string, backend Backend) (Repository, error) {
	if backend == BackendCLI {
		return OpenCLI(path)
	}
	return OpenNative(path)
}

func refUnreadable(name string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrRefUnreadable, name, err)
}

func unreachable(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrRepositoryUnreachable, op, err)
}
