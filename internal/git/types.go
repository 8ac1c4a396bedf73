package git

import (
	"strings"
	"time"
)

type Signature struct {
	Name  string
	Email string
	When  time.Time
}

type FileStat struct {
	Path      string
	Additions int
	Deletions int
}

// Commit is a read-only summary of a commit. Files is only populated by
// Repository.FileStats callers.
type Commit struct {
	Hash         string
	ParentHashes []string
	Author       Signature
	Committer    Signature
	Message      string
	Files        []FileStat
}

// FirstParent returns the first parent hash, or "" for a root commit.
func (c *Commit) FirstParent() string {
	if c == nil || len(c.ParentHashes) == 0 {
		return ""
	}
	return c.ParentHashes[0]
}

type RefKind uint8

const (
	RefKindOther RefKind = iota
	RefKindBranch
	RefKindRemoteBranch
	RefKindTag
)

func (k RefKind) String() string {
	switch k {
	case RefKindBranch:
		return "branch"
	case RefKindRemoteBranch:
		return "remote-branch"
	case RefKindTag:
		return "tag"
	default:
		return "other"
	}
}

type Ref struct {
	Hash string
	Kind RefKind
	Name string // short name: main, origin/main, v1
	Path string // full name: refs/remotes/origin/main
}

// RemoteBranch returns the branch name of a remote-tracking ref for remote,
// e.g. "feature/x" for origin/feature/x.
func (r Ref) RemoteBranch(remote string) (string, bool) {
	if r.Kind != RefKindRemoteBranch {
		return "", false
	}
	branch, ok := strings.CutPrefix(r.Name, remote+"/")
	if !ok || branch == "" {
		return "", false
	}
	return branch, true
}

// IsRemoteHead reports whether r is the symbolic <remote>/HEAD pointer.
func (r Ref) IsRemoteHead() bool {
	return r.Kind == RefKindRemoteBranch && strings.HasSuffix(r.Name, "/HEAD")
}

func refFromPath(hash, path string) (Ref, bool) {
	switch {
	case strings.HasPrefix(path, "refs/tags/"):
		short := strings.TrimPrefix(path, "refs/tags/")
		if short == "" {
			return Ref{}, false
		}
		return Ref{Hash: hash, Kind: RefKindTag, Name: short, Path: path}, true
	case strings.HasPrefix(path, "refs/heads/"):
		short := strings.TrimPrefix(path, "refs/heads/")
		if short == "" {
			return Ref{}, false
		}
		return Ref{Hash: hash, Kind: RefKindBranch, Name: short, Path: path}, true
	case strings.HasPrefix(path, "refs/remotes/"):
		short := strings.TrimPrefix(path, "refs/remotes/")
		if short == "" {
			return Ref{}, false
		}
		return Ref{Hash: hash, Kind: RefKindRemoteBranch, Name: short, Path: path}, true
	default:
		return Ref{}, false
	}
}

// filterRemoteRefs keeps the remote-tracking branches of remote and all tags.
func filterRemoteRefs(refs []Ref, remote string) []Ref {
	var out []Ref
	for _, ref := range refs {
		switch ref.Kind {
		case RefKindTag:
			out = append(out, ref)
		case RefKindRemoteBranch:
			if _, ok := ref.RemoteBranch(remote); ok {
				out = append(out, ref)
			}
		}
	}
	return out
}
