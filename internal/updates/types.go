// Package updates decides which remote changes of a repository are worth a
// notification.
package updates

import (
	"time"

	"github.com/thiagokokada/gitmon-go/internal/git"
)

type Kind uint8

const (
	KindCommits Kind = iota
	KindNewBranch
	KindNewTag
	KindRemoved
)

func (k Kind) String() string {
	switch k {
	case KindNewBranch:
		return "new-branch"
	case KindNewTag:
		return "new-tag"
	case KindRemoved:
		return "removed"
	default:
		return "commits"
	}
}

// Entry is one line item of a Record. Synthetic entries describe an event
// (branch created, tag pushed, ref removed) rather than a commit; their
// Commit, when set, is only informative.
type Entry struct {
	Commit    *git.Commit
	Synthetic bool
	Message   string
	When      time.Time
}

func commitEntry(c *git.Commit) Entry {
	return Entry{Commit: c, When: c.Committer.When}
}

func syntheticEntry(c *git.Commit, message string, when time.Time) Entry {
	return Entry{Commit: c, Synthetic: true, Message: message, When: when}
}

type Record struct {
	Ref     string
	Kind    Kind
	Entries []Entry
}

type CheckResult struct {
	Records []Record
}

func (r CheckResult) Empty() bool {
	return len(r.Records) == 0
}

// Commits counts the real commit entries across all records.
func (r CheckResult) Commits() int {
	n := 0
	for _, rec := range r.Records {
		for _, e := range rec.Entries {
			if !e.Synthetic {
				n++
			}
		}
	}
	return n
}

// LocalKnowledge is what the repository knew before fetching.
type LocalKnowledge struct {
	// Branches maps remote branch names (origin/main) to their known tip.
	Branches map[string]*git.Commit
	// Paths holds every full ref path that existed, tags included.
	Paths map[string]struct{}
}

func newLocalKnowledge() LocalKnowledge {
	return LocalKnowledge{
		Branches: map[string]*git.Commit{},
		Paths:    map[string]struct{}{},
	}
}

func (k LocalKnowledge) knows(path string) bool {
	_, ok := k.Paths[path]
	return ok
}

// tipOfOtherBranch reports whether hash was already the known tip of a
// branch other than branch.
func (k LocalKnowledge) tipOfOtherBranch(branch, hash string) (string, bool) {
	for name, c := range k.Branches {
		if name != branch && c != nil && c.Hash == hash {
			return name, true
		}
	}
	return "", false
}
