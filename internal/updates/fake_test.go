package updates

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/thiagokokada/gitmon-go/internal/git"
)

var errUnexpected = errors.New("unexpected call")

func at(sec int64) time.Time {
	return time.Unix(sec, 0).UTC()
}

// fakeRepo is an in-memory git.Repository: a commit graph plus the remote
// refs before and after a fetch.
type fakeRepo struct {
	commits map[string]*git.Commit
	before  []git.Ref
	after   []git.Ref
	stale   []git.Ref
	files   map[string][]git.FileStat

	fetched bool
	pulls   int
	deleted []git.Ref

	remoteRefsErr error
	fetchErr      error
	pullErr       error
	staleErr      error
	deleteErr     error
	unreadable    map[string]bool
	statsCalls    []string
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		commits:    map[string]*git.Commit{},
		files:      map[string][]git.FileStat{},
		unreadable: map[string]bool{},
	}
}

// commit adds a commit authored and committed at sec.
func (f *fakeRepo) commit(hash, parent string, sec int64, message string) *git.Commit {
	c := &git.Commit{
		Hash:      hash,
		Author:    git.Signature{Name: "Alice", When: at(sec)},
		Committer: git.Signature{Name: "Alice", When: at(sec)},
		Message:   message,
	}
	if parent != "" {
		c.ParentHashes = []string{parent}
	}
	f.commits[hash] = c
	return c
}

func branchRef(name, hash string) git.Ref {
	return git.Ref{Hash: hash, Kind: git.RefKindRemoteBranch, Name: name, Path: "refs/remotes/" + name}
}

func tagRef(name, hash string) git.Ref {
	return git.Ref{Hash: hash, Kind: git.RefKindTag, Name: name, Path: "refs/tags/" + name}
}

func (f *fakeRepo) current() []git.Ref {
	refs := f.before
	if f.fetched {
		refs = f.after
	}
	return slices.DeleteFunc(slices.Clone(refs), func(r git.Ref) bool {
		return slices.ContainsFunc(f.deleted, func(d git.Ref) bool { return d.Path == r.Path })
	})
}

func (f *fakeRepo) Path() string { return "/repos/fake" }

func (f *fakeRepo) RemoteRefs(_ context.Context, _ string) ([]git.Ref, error) {
	if f.remoteRefsErr != nil {
		return nil, f.remoteRefsErr
	}
	return f.current(), nil
}

func (f *fakeRepo) Fetch(_ context.Context, _ string) ([]git.Ref, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	f.fetched = true
	return f.current(), nil
}

// push simulates new upstream activity: refs is what the next fetch returns.
func (f *fakeRepo) push(refs ...git.Ref) {
	f.before = f.current()
	f.after = refs
	f.fetched = false
}

func (f *fakeRepo) Pull(_ context.Context, _ string) error {
	f.pulls++
	return f.pullErr
}

func (f *fakeRepo) StaleRefs(_ context.Context, _ string) ([]git.Ref, error) {
	if f.staleErr != nil {
		return nil, f.staleErr
	}
	var out []git.Ref
	for _, ref := range f.stale {
		if !slices.Contains(f.deleted, ref) {
			out = append(out, ref)
		}
	}
	return out, nil
}

func (f *fakeRepo) DeleteRef(_ context.Context, ref git.Ref) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, ref)
	return nil
}

func (f *fakeRepo) Commit(_ context.Context, hash string) (*git.Commit, error) {
	if f.unreadable[hash] {
		return nil, fmt.Errorf("%w: %s", git.ErrRefUnreadable, hash)
	}
	c, ok := f.commits[hash]
	if !ok {
		return nil, fmt.Errorf("%w: %s", errUnexpected, hash)
	}
	cp := *c
	return &cp, nil
}

// NameRev names hash after the closest remote branch tip along first
// parents, like git name-rev restricted to remote-tracking refs.
func (f *fakeRepo) NameRev(_ context.Context, hash string) (string, error) {
	refs := f.current()
	slices.SortFunc(refs, func(a, b git.Ref) int { return strings.Compare(a.Name, b.Name) })
	best, bestDist := "", -1
	for _, ref := range refs {
		if ref.Kind != git.RefKindRemoteBranch || ref.IsRemoteHead() {
			continue
		}
		for dist, h := 0, ref.Hash; h != ""; dist++ {
			if h == hash {
				if bestDist < 0 || dist < bestDist {
					best, bestDist = ref.Name, dist
				}
				break
			}
			c, ok := f.commits[h]
			if !ok {
				break
			}
			h = c.FirstParent()
		}
	}
	switch {
	case bestDist < 0:
		return "undefined", nil
	case bestDist == 0:
		return "remotes/" + best, nil
	default:
		return fmt.Sprintf("remotes/%s~%d", best, bestDist), nil
	}
}

func (f *fakeRepo) FileStats(_ context.Context, hash string) ([]git.FileStat, error) {
	f.statsCalls = append(f.statsCalls, hash)
	if f.unreadable[hash] {
		return nil, errUnexpected
	}
	return f.files[hash], nil
}

func hashes(entries []Entry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Commit != nil {
			out = append(out, e.Commit.Hash)
		}
	}
	return out
}
