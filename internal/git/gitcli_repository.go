package git

import (
	"context"
	"fmt"
	"strings"
)

func (g *gitCLI) listRefs(ctx context.Context) ([]Ref, error) {
	out, err := g.runGitCommand(ctx,
		[]string{
			"--no-pager",
			"show-ref",
			"--dereference",
		},
		true,
		"git show-ref",
	)
	if err != nil {
		return nil, err
	}
	return parseRefsFromShowRef(out)
}

func (g *gitCLI) ensureRemote(ctx context.Context, remote string) error {
	out, err := g.runGitCommand(ctx, []string{"remote"}, false, "git remote")
	if err != nil {
		return unreachable("list remotes", err)
	}
	for line := range strings.SplitSeq(out, "\n") {
		if strings.TrimSpace(line) == remote {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrNoRemote, remote)
}

func (g *gitCLI) RemoteRefs(ctx context.Context, remote string) ([]Ref, error) {
	if err := g.ensureRemote(ctx, remote); err != nil {
		return nil, err
	}
	refs, err := g.listRefs(ctx)
	if err != nil {
		return nil, err
	}
	return filterRemoteRefs(refs, remote), nil
}

func (g *gitCLI) Fetch(ctx context.Context, remote string) ([]Ref, error) {
	if err := g.ensureRemote(ctx, remote); err != nil {
		return nil, err
	}
	if _, err := g.runGitCommand(ctx, []string{"fetch", "--quiet", "--tags", remote}, false, "git fetch"); err != nil {
		return nil, unreachable("fetch "+remote, err)
	}
	return g.RemoteRefs(ctx, remote)
}

func (g *gitCLI) Pull(ctx context.Context, remote string) error {
	_, err := g.runGitCommand(ctx, []string{"pull", "--quiet", "--ff-only", remote}, false, "git pull")
	return err
}

func (g *gitCLI) StaleRefs(ctx context.Context, remote string) ([]Ref, error) {
	local, err := g.RemoteRefs(ctx, remote)
	if err != nil {
		return nil, err
	}
	out, err := g.runGitCommand(ctx, []string{"ls-remote", "--heads", remote}, false, "git ls-remote")
	if err != nil {
		return nil, unreachable("list "+remote, err)
	}
	upstream, err := parseLsRemoteHeads(out)
	if err != nil {
		return nil, err
	}
	return staleRemoteBranches(local, upstream, remote), nil
}

func (g *gitCLI) DeleteRef(ctx context.Context, ref Ref) error {
	if ref.Path == "" {
		return fmt.Errorf("ref %q has no full name", ref.Name)
	}
	_, err := g.runGitCommand(ctx, []string{"update-ref", "-d", ref.Path}, false, "git update-ref")
	return err
}

func (g *gitCLI) Commit(ctx context.Context, hash string) (*Commit, error) {
	hash = strings.TrimSpace(hash)
	if hash == "" {
		return nil, fmt.Errorf("commit not specified")
	}
	out, err := g.runGitCommand(ctx,
		[]string{"show", "-s", "--no-color", "--format=" + commitRecordFormat, hash + "^{commit}"},
		false,
		"git show",
	)
	if err != nil {
		return nil, refUnreadable(hash, err)
	}
	commit, err := parseCommitRecord([]byte(out))
	if err != nil {
		return nil, refUnreadable(hash, err)
	}
	return commit, nil
}

func (g *gitCLI) NameRev(ctx context.Context, hash string) (string, error) {
	out, err := g.runGitCommand(ctx,
		[]string{
			"name-rev",
			"--name-only",
			"--refs=refs/remotes/*",
			"--exclude=refs/remotes/*/HEAD",
			hash,
		},
		false,
		"git name-rev",
	)
	if err != nil {
		return "", err
	}
	name := strings.TrimSpace(out)
	if name == "" {
		return undefinedName, nil
	}
	return name, nil
}

func (g *gitCLI) FileStats(ctx context.Context, hash string) ([]FileStat, error) {
	commit, err := g.Commit(ctx, hash)
	if err != nil {
		return nil, err
	}
	var args []string
	if parent := commit.FirstParent(); parent != "" {
		args = []string{"diff", "--numstat", "--no-color", "--no-renames", parent, commit.Hash}
	} else {
		args = []string{"diff-tree", "--root", "-r", "--numstat", "--no-renames", "--no-commit-id", commit.Hash}
	}
	out, err := g.runGitCommand(ctx, args, false, "git numstat")
	if err != nil {
		return nil, err
	}
	return parseNumstat(out)
}
