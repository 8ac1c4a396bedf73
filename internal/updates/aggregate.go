package updates

import (
	"cmp"
	"slices"
)

// FilterAndCap de-duplicates commits across records, keeps the limit most
// recent real commits and regroups what is left by record. Synthetic entries
// are never dropped. A limit <= 0 keeps no real commits.
func FilterAndCap(records []Record, limit int) CheckResult {
	type item struct {
		rec   int
		order int
		entry Entry
	}

	seen := map[string]struct{}{}
	var real, kept []item
	order := 0
	for i, rec := range records {
		for _, e := range rec.Entries {
			it := item{rec: i, order: order, entry: e}
			order++
			if e.Synthetic {
				kept = append(kept, it)
				continue
			}
			if e.Commit == nil {
				continue
			}
			if _, dup := seen[e.Commit.Hash]; dup {
				continue
			}
			seen[e.Commit.Hash] = struct{}{}
			real = append(real, it)
		}
	}

	byTimeDesc := func(a, b item) int {
		if c := b.entry.When.Compare(a.entry.When); c != 0 {
			return c
		}
		return cmp.Compare(a.order, b.order)
	}
	slices.SortStableFunc(real, byTimeDesc)
	if limit <= 0 {
		real = nil
	} else if len(real) > limit {
		real = real[:limit]
	}
	kept = append(kept, real...)
	slices.SortStableFunc(kept, byTimeDesc)

	var out []Record
	index := map[int]int{}
	for _, it := range kept {
		pos, ok := index[it.rec]
		if !ok {
			src := records[it.rec]
			out = append(out, Record{Ref: src.Ref, Kind: src.Kind})
			pos = len(out) - 1
			index[it.rec] = pos
		}
		out[pos].Entries = append(out[pos].Entries, it.entry)
	}
	return CheckResult{Records: out}
}
