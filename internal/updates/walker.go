package updates

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/thiagokokada/gitmon-go/internal/git"
)

// CommitSource is the part of git.Repository the walker reads from.
type CommitSource interface {
	Commit(ctx context.Context, hash string) (*git.Commit, error)
	NameRev(ctx context.Context, hash string) (string, error)
}

// Walker yields the commits of a branch that are newer than the local tip,
// following first parents from the fetched tip. It is finite and can not be
// restarted.
type Walker struct {
	src      CommitSource
	branch   string
	local    *git.Commit
	cur      *git.Commit
	nextHash string
	steps    int
	maxDepth int
	done     bool
}

func NewWalker(src CommitSource, branch string, local, tip *git.Commit, maxDepth int) *Walker {
	return &Walker{
		src:      src,
		branch:   branch,
		local:    local,
		cur:      tip,
		maxDepth: maxDepth,
		done:     tip == nil,
	}
}

// Next returns the next newer commit, or io.EOF once the walk is over.
func (w *Walker) Next(ctx context.Context) (*git.Commit, error) {
	for !w.done {
		if w.steps >= w.maxDepth {
			w.done = true
			break
		}
		if w.cur == nil {
			c, err := w.src.Commit(ctx, w.nextHash)
			if err != nil {
				w.done = true
				return nil, fmt.Errorf("walk %s: %w", w.branch, err)
			}
			w.cur = c
		}
		cur := w.cur
		if w.local != nil && cur.Hash == w.local.Hash {
			w.done = true
			break
		}
		name, err := w.src.NameRev(ctx, cur.Hash)
		if err != nil {
			w.done = true
			return nil, fmt.Errorf("name-rev %s: %w", cur.Hash, err)
		}
		if !namesBranch(name, w.branch) {
			w.done = true
			break
		}

		w.steps++
		w.cur = nil
		w.nextHash = cur.FirstParent()
		if w.nextHash == "" {
			w.done = true
		}
		if IsNewer(w.local, cur) {
			return cur, nil
		}
	}
	return nil, io.EOF
}

// Collect drains the walker. Commits gathered before an error are returned
// along with it.
func (w *Walker) Collect(ctx context.Context) ([]*git.Commit, error) {
	var out []*git.Commit
	for {
		c, err := w.Next(ctx)
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, c)
	}
}

// namesBranch reports whether a name-rev descriptor such as
// "remotes/origin/main~2" refers to branch.
func namesBranch(descriptor, branch string) bool {
	base := strings.TrimSpace(descriptor)
	if i := strings.IndexAny(base, "~^"); i >= 0 {
		base = base[:i]
	}
	if base == "" || branch == "" {
		return false
	}
	return base == branch || strings.HasSuffix(base, "/"+branch)
}
