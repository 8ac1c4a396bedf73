package git

import (
	"context"
	"fmt"
	"sort"
)

// nameRevDepth bounds how far back each remote-tracking branch is indexed.
const nameRevDepth = 256

type nameRevEntry struct {
	ref      string
	distance int
}

// nameRevIndex maps commits to the closest remote-tracking branch tip along
// first-parent history.
type nameRevIndex struct {
	byHash map[string]nameRevEntry
}

func buildNameRevIndex(ctx context.Context, refs []Ref, parentOf func(hash string) (string, error)) (*nameRevIndex, error) {
	tips := make([]Ref, 0, len(refs))
	for _, ref := range refs {
		if ref.Kind != RefKindRemoteBranch || ref.IsRemoteHead() {
			continue
		}
		tips = append(tips, ref)
	}
	sort.Slice(tips, func(i, j int) bool { return tips[i].Name < tips[j].Name })

	idx := &nameRevIndex{byHash: map[string]nameRevEntry{}}
	for _, tip := range tips {
		hash := tip.Hash
		for distance := 0; distance < nameRevDepth && hash != ""; distance++ {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if cur, ok := idx.byHash[hash]; ok && cur.distance <= distance {
				// Anything further back is already reachable through a closer tip.
				break
			}
			idx.byHash[hash] = nameRevEntry{ref: tip.Name, distance: distance}
			parent, err := parentOf(hash)
			if err != nil {
				return nil, fmt.Errorf("walk %s: %w", tip.Name, err)
			}
			hash = parent
		}
	}
	return idx, nil
}

func (idx *nameRevIndex) len() int {
	if idx == nil {
		return 0
	}
	return len(idx.byHash)
}

func (idx *nameRevIndex) name(hash string) string {
	if idx == nil {
		return undefinedName
	}
	entry, ok := idx.byHash[hash]
	if !ok {
		return undefinedName
	}
	if entry.distance == 0 {
		return "remotes/" + entry.ref
	}
	return fmt.Sprintf("remotes/%s~%d", entry.ref, entry.distance)
}
