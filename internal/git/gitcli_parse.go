package git

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const undefinedName = "undefined"

// commitRecordFormat prints one field per line; the message is last so it may
// span several lines.
const commitRecordFormat = "%H%n%P%n%an%n%ae%n%aI%n%cn%n%ce%n%cI%n%B"

func parseRefsFromShowRef(out string) ([]Ref, error) {
	type refEntry struct {
		hash string
		ref  string
	}

	peeledByTagRef := map[string]string{}
	var entries []refEntry

	for _, rawLine := range strings.Split(out, "\n") {
		line := strings.TrimRight(rawLine, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		parts := strings.Fields(line)
		if len(parts) != 2 {
			return nil, fmt.Errorf("unexpected show-ref output line: %q", rawLine)
		}
		hash := strings.TrimSpace(parts[0])
		refName := strings.TrimSpace(parts[1])
		if hash == "" || refName == "" {
			return nil, fmt.Errorf("unexpected show-ref output line: %q", rawLine)
		}
		if strings.HasSuffix(refName, "^{}") {
			base := strings.TrimSuffix(refName, "^{}")
			if base != "" {
				peeledByTagRef[base] = hash
			}
			continue
		}
		entries = append(entries, refEntry{hash: hash, ref: refName})
	}

	var refs []Ref
	for _, entry := range entries {
		ref, ok := refFromPath(entry.hash, entry.ref)
		if !ok {
			continue
		}
		if ref.Kind == RefKindTag {
			if peeled, ok := peeledByTagRef[entry.ref]; ok && peeled != "" {
				ref.Hash = peeled
			}
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

// parseLsRemoteHeads returns the branch names advertised by ls-remote --heads.
func parseLsRemoteHeads(out string) (map[string]struct{}, error) {
	heads := map[string]struct{}{}
	for _, rawLine := range strings.Split(out, "\n") {
		line := strings.TrimRight(rawLine, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		parts := strings.Fields(line)
		if len(parts) != 2 {
			return nil, fmt.Errorf("unexpected ls-remote output line: %q", rawLine)
		}
		name, ok := strings.CutPrefix(parts[1], "refs/heads/")
		if !ok || name == "" {
			continue
		}
		heads[name] = struct{}{}
	}
	return heads, nil
}

func staleRemoteBranches(local []Ref, upstream map[string]struct{}, remote string) []Ref {
	var stale []Ref
	for _, ref := range local {
		if ref.IsRemoteHead() {
			continue
		}
		branch, ok := ref.RemoteBranch(remote)
		if !ok {
			continue
		}
		if _, exists := upstream[branch]; !exists {
			stale = append(stale, ref)
		}
	}
	return stale
}

func parseCommitRecord(rec []byte) (*Commit, error) {
	rec = bytes.TrimPrefix(rec, []byte("\n"))
	fields := bytes.SplitN(rec, []byte("\n"), 9)
	if len(fields) < 8 {
		return nil, fmt.Errorf("unexpected commit record: %d fields", len(fields))
	}
	hash := strings.TrimSpace(string(fields[0]))
	if hash == "" {
		return nil, fmt.Errorf("unexpected commit record: empty hash")
	}
	authorWhen, err := time.Parse(time.RFC3339, strings.TrimSpace(string(fields[4])))
	if err != nil {
		return nil, fmt.Errorf("parse author date: %w", err)
	}
	committerWhen, err := time.Parse(time.RFC3339, strings.TrimSpace(string(fields[7])))
	if err != nil {
		return nil, fmt.Errorf("parse committer date: %w", err)
	}
	var message string
	if len(fields) == 9 {
		message = string(fields[8])
	}
	return &Commit{
		Hash:         hash,
		ParentHashes: strings.Fields(string(fields[1])),
		Author: Signature{
			Name:  string(fields[2]),
			Email: string(fields[3]),
			When:  authorWhen,
		},
		Committer: Signature{
			Name:  string(fields[5]),
			Email: string(fields[6]),
			When:  committerWhen,
		},
		Message: message,
	}, nil
}

func parseNumstat(out string) ([]FileStat, error) {
	var stats []FileStat
	for _, rawLine := range strings.Split(out, "\n") {
		line := strings.TrimRight(rawLine, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		parts := strings.SplitN(line, "\t", 3)
		if len(parts) != 3 {
			return nil, fmt.Errorf("unexpected numstat output line: %q", rawLine)
		}
		stats = append(stats, FileStat{
			Path:      parts[2],
			Additions: numstatCount(parts[0]),
			Deletions: numstatCount(parts[1]),
		})
	}
	return stats, nil
}

// numstatCount treats "-" (binary files) as zero.
func numstatCount(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0
	}
	return n
}
