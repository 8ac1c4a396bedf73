package updates

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thiagokokada/gitmon-go/internal/git"
)

func commitHashes(commits []*git.Commit) []string {
	out := make([]string, 0, len(commits))
	for _, c := range commits {
		out = append(out, c.Hash)
	}
	return out
}

// linearRepo builds c1 <- c2 <- ... <- cN on origin/main, ci committed at i*100.
func linearRepo(n int) *fakeRepo {
	f := newFakeRepo()
	parent := ""
	for i := 1; i <= n; i++ {
		hash := "c" + string(rune('0'+i))
		f.commit(hash, parent, int64(i*100), "commit "+hash)
		parent = hash
	}
	f.after = []git.Ref{branchRef("origin/main", parent)}
	f.fetched = true
	return f
}

func TestWalkerStopsAtLocalCommit(t *testing.T) {
	t.Parallel()

	f := linearRepo(4)
	w := NewWalker(f, "origin/main", f.commits["c1"], f.commits["c4"], 5)
	got, err := w.Collect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"c4", "c3", "c2"}, commitHashes(got))

	_, err = w.Next(context.Background())
	assert.ErrorIs(t, err, io.EOF, "walker is not restartable")
}

func TestWalkerRespectsDepth(t *testing.T) {
	t.Parallel()

	f := linearRepo(6)
	got, err := NewWalker(f, "origin/main", f.commits["c1"], f.commits["c6"], 2).Collect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"c6", "c5"}, commitHashes(got))

	got, err = NewWalker(f, "origin/main", f.commits["c1"], f.commits["c6"], 0).Collect(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestWalkerStopsWhenNameRevLeavesBranch(t *testing.T) {
	t.Parallel()

	// c1 <- c2 (origin/release) <- c3 <- c4 (origin/main)
	f := linearRepo(4)
	f.after = append(f.after, branchRef("origin/release", "c2"))
	got, err := NewWalker(f, "origin/main", nil, f.commits["c4"], 5).Collect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"c4", "c3"}, commitHashes(got))
}

func TestWalkerSkipsOlderCommitsButKeepsWalking(t *testing.T) {
	t.Parallel()

	f := newFakeRepo()
	f.commit("a", "", 100, "base")
	f.commit("b", "a", 500, "rebased with an old date")
	f.commit("c", "b", 150, "old timestamp")
	f.commit("d", "c", 600, "tip")
	f.after = []git.Ref{branchRef("origin/main", "d")}
	f.fetched = true

	local := f.commit("l", "", 200, "known tip, not in history")
	got, err := NewWalker(f, "origin/main", local, f.commits["d"], 5).Collect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"d", "b"}, commitHashes(got))
}

func TestWalkerReturnsCollectedCommitsOnError(t *testing.T) {
	t.Parallel()

	f := linearRepo(3)
	f.unreadable["c2"] = true
	got, err := NewWalker(f, "origin/main", nil, f.commits["c3"], 5).Collect(context.Background())
	require.Error(t, err)
	assert.Equal(t, []string{"c3"}, commitHashes(got))
}
