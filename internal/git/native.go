package git

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	gitlib "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

type nativeRepo struct {
	// mu guards the name-rev index, which is rebuilt after refs move.
	mu    sync.Mutex
	names *nameRevIndex
	path  string
	*gitlib.Repository
}

// OpenNative opens the repository at repoPath with go-git.
func OpenNative(repoPath string) (Repository, error) {
	abs, err := filepath.Abs(repoPath)
	if err != nil {
		return nil, err
	}
	repo, err := gitlib.PlainOpenWithOptions(abs, &gitlib.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, unreachable("open repository", err)
	}
	return &nativeRepo{path: abs, Repository: repo}, nil
}

func (r *nativeRepo) Path() string {
	return r.path
}

func (r *nativeRepo) ensureRemote(remote string) (*gitlib.Remote, error) {
	rem, err := r.Remote(remote)
	if err != nil {
		if errors.Is(err, gitlib.ErrRemoteNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNoRemote, remote)
		}
		return nil, unreachable("read remote "+remote, err)
	}
	return rem, nil
}

func (r *nativeRepo) listRefs() ([]Ref, error) {
	iter, err := r.References()
	if err != nil {
		return nil, err
	}
	defer iter.Close()
	var refs []Ref
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		if ref.Type() != plumbing.HashReference {
			return nil
		}
		converted, ok := refFromPath(ref.Hash().String(), ref.Name().String())
		if !ok {
			return nil
		}
		if converted.Kind == RefKindTag {
			if peeled, ok := r.peelTagCommitHash(ref.Hash()); ok {
				converted.Hash = peeled.String()
			}
		}
		refs = append(refs, converted)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return refs, nil
}

func (r *nativeRepo) RemoteRefs(ctx context.Context, remote string) ([]Ref, error) {
	if _, err := r.ensureRemote(remote); err != nil {
		return nil, err
	}
	refs, err := r.listRefs()
	if err != nil {
		return nil, fmt.Errorf("list refs: %w", err)
	}
	return filterRemoteRefs(refs, remote), nil
}

func (r *nativeRepo) Fetch(ctx context.Context, remote string) ([]Ref, error) {
	if _, err := r.ensureRemote(remote); err != nil {
		return nil, err
	}
	err := r.FetchContext(ctx, &gitlib.FetchOptions{
		RemoteName: remote,
		Tags:       gitlib.AllTags,
	})
	if err != nil && !errors.Is(err, gitlib.NoErrAlreadyUpToDate) {
		return nil, unreachable("fetch "+remote, err)
	}
	r.invalidateNames()
	return r.RemoteRefs(ctx, remote)
}

func (r *nativeRepo) Pull(ctx context.Context, remote string) error {
	wt, err := r.Worktree()
	if err != nil {
		return fmt.Errorf("worktree: %w", err)
	}
	opts := &gitlib.PullOptions{RemoteName: remote}
	if head, err := r.Head(); err == nil && head.Name().IsBranch() {
		opts.ReferenceName = head.Name()
	}
	err = wt.PullContext(ctx, opts)
	if err != nil && !errors.Is(err, gitlib.NoErrAlreadyUpToDate) {
		return fmt.Errorf("pull %s: %w", remote, err)
	}
	r.invalidateNames()
	return nil
}

func (r *nativeRepo) StaleRefs(ctx context.Context, remote string) ([]Ref, error) {
	rem, err := r.ensureRemote(remote)
	if err != nil {
		return nil, err
	}
	local, err := r.RemoteRefs(ctx, remote)
	if err != nil {
		return nil, err
	}
	advertised, err := rem.ListContext(ctx, &gitlib.ListOptions{})
	if err != nil {
		return nil, unreachable("list "+remote, err)
	}
	upstream := make(map[string]struct{}, len(advertised))
	for _, ref := range advertised {
		if ref.Name().IsBranch() {
			upstream[ref.Name().Short()] = struct{}{}
		}
	}
	return staleRemoteBranches(local, upstream, remote), nil
}

func (r *nativeRepo) DeleteRef(ctx context.Context, ref Ref) error {
	if ref.Path == "" {
		return fmt.Errorf("ref %q has no full name", ref.Name)
	}
	if err := r.Storer.RemoveReference(plumbing.ReferenceName(ref.Path)); err != nil {
		return fmt.Errorf("delete %s: %w", ref.Path, err)
	}
	r.invalidateNames()
	return nil
}

func (r *nativeRepo) Commit(ctx context.Context, hash string) (*Commit, error) {
	obj, err := r.commitObject(hash)
	if err != nil {
		return nil, err
	}
	return commitFromObject(obj), nil
}

func (r *nativeRepo) commitObject(hash string) (*object.Commit, error) {
	hash = strings.TrimSpace(hash)
	if !plumbing.IsHash(hash) {
		return nil, refUnreadable(hash, errors.New("not a hash"))
	}
	peeled, ok := r.peelTagCommitHash(plumbing.NewHash(hash))
	if !ok {
		return nil, refUnreadable(hash, errors.New("does not point to a commit"))
	}
	obj, err := r.CommitObject(peeled)
	if err != nil {
		return nil, refUnreadable(hash, err)
	}
	return obj, nil
}

func (r *nativeRepo) peelTagCommitHash(hash plumbing.Hash) (plumbing.Hash, bool) {
	if hash == plumbing.ZeroHash {
		return plumbing.ZeroHash, false
	}
	// Lightweight tags point directly at a commit; annotated tags point at a tag object.
	if _, err := r.CommitObject(hash); err == nil {
		return hash, true
	}
	cur := hash
	for range 8 {
		tag, err := r.TagObject(cur)
		if err != nil {
			return plumbing.ZeroHash, false
		}
		switch tag.TargetType {
		case plumbing.CommitObject:
			return tag.Target, true
		case plumbing.TagObject:
			cur = tag.Target
		default:
			return plumbing.ZeroHash, false
		}
	}
	return plumbing.ZeroHash, false
}

func (r *nativeRepo) FileStats(ctx context.Context, hash string) ([]FileStat, error) {
	obj, err := r.commitObject(hash)
	if err != nil {
		return nil, err
	}
	stats, err := obj.StatsContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("stats %s: %w", obj.Hash, err)
	}
	out := make([]FileStat, 0, len(stats))
	for _, st := range stats {
		out = append(out, FileStat{Path: st.Name, Additions: st.Addition, Deletions: st.Deletion})
	}
	return out, nil
}

func (r *nativeRepo) NameRev(ctx context.Context, hash string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.names == nil {
		refs, err := r.listRefs()
		if err != nil {
			return "", fmt.Errorf("list refs: %w", err)
		}
		idx, err := buildNameRevIndex(ctx, refs, r.lookupParent)
		if err != nil {
			return "", err
		}
		slog.Debug("name-rev index built", slog.String("repo", r.path), slog.Int("commits", idx.len()))
		r.names = idx
	}
	return r.names.name(hash), nil
}

func (r *nativeRepo) lookupParent(hash string) (string, error) {
	obj, err := r.CommitObject(plumbing.NewHash(hash))
	if err != nil {
		return "", err
	}
	if len(obj.ParentHashes) == 0 {
		return "", nil
	}
	return obj.ParentHashes[0].String(), nil
}

func (r *nativeRepo) invalidateNames() {
	r.mu.Lock()
	r.names = nil
	r.mu.Unlock()
}

func commitFromObject(c *object.Commit) *Commit {
	parents := make([]string, 0, len(c.ParentHashes))
	for _, p := range c.ParentHashes {
		parents = append(parents, p.String())
	}
	return &Commit{
		Hash:         c.Hash.String(),
		ParentHashes: parents,
		Author:       Signature{Name: c.Author.Name, Email: c.Author.Email, When: c.Author.When},
		Committer:    Signature{Name: c.Committer.Name, Email: c.Committer.Email, When: c.Committer.When},
		Message:      c.Message,
	}
}
