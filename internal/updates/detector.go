package updates

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/thiagokokada/gitmon-go/internal/git"
	"github.com/thiagokokada/gitmon-go/internal/logging"
)

const (
	DefaultMaxNewCommits = 5

	newBranchMessage = "New branch created"
)

type Options struct {
	Remote          string
	NotifyNewBranch bool
	NotifyNewTag    bool
	AutoPull        bool
	AutoDeleteStale bool
	MaxNewCommits   int
}

func DefaultOptions() Options {
	return Options{
		Remote:          git.DefaultRemote,
		NotifyNewBranch: true,
		NotifyNewTag:    true,
		MaxNewCommits:   DefaultMaxNewCommits,
	}
}

// Detector runs one check cycle against a repository: snapshot the known
// refs, fetch, classify what moved, and aggregate the result.
type Detector struct {
	repo git.Repository
	opts Options
	log  *slog.Logger
	now  func() time.Time
}

func NewDetector(repo git.Repository, opts Options) *Detector {
	if opts.Remote == "" {
		opts.Remote = git.DefaultRemote
	}
	return &Detector{
		repo: repo,
		opts: opts,
		log:  slog.Default().With(slog.String("repo", repo.Path())),
		now:  time.Now,
	}
}

func (d *Detector) Options() Options {
	return d.opts
}

// Check returns the updates found in this cycle. An error means the whole
// repository was skipped; per-ref problems are only logged.
func (d *Detector) Check(ctx context.Context) (CheckResult, error) {
	known, err := d.snapshot(ctx)
	if err != nil {
		return CheckResult{}, err
	}

	d.log.Info("fetching", slog.String("remote", d.opts.Remote))
	fetched, err := d.repo.Fetch(ctx, d.opts.Remote)
	if err != nil {
		return CheckResult{}, fmt.Errorf("fetch %s: %w", d.opts.Remote, err)
	}

	var records []Record
	for _, ref := range fetched {
		if err := ctx.Err(); err != nil {
			return CheckResult{}, err
		}
		rec, ok := d.classify(ctx, known, ref)
		if ok {
			records = append(records, rec)
		}
	}

	if d.opts.AutoPull {
		if err := d.repo.Pull(ctx, d.opts.Remote); err != nil {
			d.log.Warn("auto pull failed", slog.Any("error", err))
		}
	}
	if d.opts.AutoDeleteStale {
		records = append(records, d.sweepStale(ctx)...)
	}

	result := FilterAndCap(records, d.opts.MaxNewCommits)
	d.loadFileStats(ctx, result)
	d.log.Info("check finished",
		slog.Int("records", len(result.Records)),
		slog.Int("commits", result.Commits()),
	)
	return result, nil
}

func (d *Detector) snapshot(ctx context.Context) (LocalKnowledge, error) {
	refs, err := d.repo.RemoteRefs(ctx, d.opts.Remote)
	if err != nil {
		return LocalKnowledge{}, fmt.Errorf("list refs of %s: %w", d.opts.Remote, err)
	}
	known := newLocalKnowledge()
	for _, ref := range refs {
		known.Paths[ref.Path] = struct{}{}
		if ref.Kind != git.RefKindRemoteBranch || ref.IsRemoteHead() {
			continue
		}
		c, err := d.repo.Commit(ctx, ref.Hash)
		if err != nil {
			d.warnRef("skipping unreadable ref", ref, err)
			continue
		}
		known.Branches[ref.Name] = c
	}
	d.log.Debug("snapshot taken", logging.Dump("branches", branchTips(known)))
	return known, nil
}

func (d *Detector) classify(ctx context.Context, known LocalKnowledge, ref git.Ref) (Record, bool) {
	switch ref.Kind {
	case git.RefKindRemoteBranch:
		if ref.IsRemoteHead() {
			return Record{}, false
		}
		tip, err := d.repo.Commit(ctx, ref.Hash)
		if err != nil {
			d.warnRef("skipping unreadable ref", ref, err)
			return Record{}, false
		}
		local, ok := known.Branches[ref.Name]
		if !ok {
			if known.knows(ref.Path) || !d.opts.NotifyNewBranch {
				return Record{}, false
			}
			return Record{
				Ref:     d.branchName(ref),
				Kind:    KindNewBranch,
				Entries: []Entry{syntheticEntry(tip, newBranchMessage, tip.Committer.When)},
			}, true
		}
		return d.branchCommits(ctx, known, ref, local, tip)
	case git.RefKindTag:
		if known.knows(ref.Path) || !d.opts.NotifyNewTag {
			return Record{}, false
		}
		c, err := d.repo.Commit(ctx, ref.Hash)
		if err != nil {
			d.warnRef("skipping unreadable tag", ref, err)
			return Record{}, false
		}
		return Record{
			Ref:     ref.Name,
			Kind:    KindNewTag,
			Entries: []Entry{syntheticEntry(c, strings.TrimSpace(c.Message), c.Committer.When)},
		}, true
	default:
		d.log.Warn("unrecognized ref", slog.String("ref", ref.Path), slog.String("kind", ref.Kind.String()))
		return Record{}, false
	}
}

func (d *Detector) branchCommits(ctx context.Context, known LocalKnowledge, ref git.Ref, local, tip *git.Commit) (Record, bool) {
	if local.Hash == tip.Hash {
		return Record{}, false
	}
	if other, ok := known.tipOfOtherBranch(ref.Name, tip.Hash); ok {
		d.log.Debug("tip already known on another branch",
			slog.String("ref", ref.Name),
			slog.String("other", other),
		)
		return Record{}, false
	}
	commits, err := NewWalker(d.repo, ref.Name, local, tip, d.opts.MaxNewCommits).Collect(ctx)
	if err != nil {
		d.warnRef("history walk stopped", ref, err)
	}
	if len(commits) == 0 {
		return Record{}, false
	}
	rec := Record{Ref: d.branchName(ref), Kind: KindCommits}
	for _, c := range commits {
		rec.Entries = append(rec.Entries, commitEntry(c))
	}
	return rec, true
}

func (d *Detector) sweepStale(ctx context.Context) []Record {
	stale, err := d.repo.StaleRefs(ctx, d.opts.Remote)
	if err != nil {
		d.log.Warn("listing stale refs failed", slog.Any("error", err))
		return nil
	}
	var records []Record
	for _, ref := range stale {
		if err := d.repo.DeleteRef(ctx, ref); err != nil {
			d.warnRef("deleting stale ref failed", ref, err)
			continue
		}
		d.log.Info("deleted stale ref", slog.String("ref", ref.Path))
		msg := fmt.Sprintf("This remote reference no longer appears in %s. It was removed locally.", d.opts.Remote)
		records = append(records, Record{
			Ref:     d.branchName(ref),
			Kind:    KindRemoved,
			Entries: []Entry{syntheticEntry(nil, msg, d.now())},
		})
	}
	return records
}

func (d *Detector) loadFileStats(ctx context.Context, result CheckResult) {
	for _, rec := range result.Records {
		for _, e := range rec.Entries {
			if e.Synthetic || e.Commit == nil || e.Commit.Files != nil {
				continue
			}
			stats, err := d.repo.FileStats(ctx, e.Commit.Hash)
			if err != nil {
				d.log.Warn("loading file stats failed", slog.String("commit", e.Commit.Hash), slog.Any("error", err))
				continue
			}
			e.Commit.Files = stats
		}
	}
}

// branchName is the upstream name of a remote-tracking ref: "main" for
// origin/main.
func (d *Detector) branchName(ref git.Ref) string {
	if branch, ok := ref.RemoteBranch(d.opts.Remote); ok {
		return branch
	}
	return ref.Name
}

func (d *Detector) warnRef(msg string, ref git.Ref, err error) {
	d.log.Warn(msg, slog.String("ref", ref.Name), slog.Any("error", err))
	d.log.Debug(msg, logging.Dump("ref", ref))
}

func branchTips(k LocalKnowledge) map[string]string {
	out := make(map[string]string, len(k.Branches))
	for name, c := range k.Branches {
		out[name] = c.Hash
	}
	return out
}
