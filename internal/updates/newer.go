package updates

import "github.com/thiagokokada/gitmon-go/internal/git"

// IsNewer reports whether remote should be announced given the last known
// commit local. It compares committer timestamps, not ancestry, so a
// rewritten commit that is not strictly newer than local is missed.
func IsNewer(local, remote *git.Commit) bool {
	if remote == nil {
		return false
	}
	if local == nil {
		return true
	}
	if local.Hash == remote.Hash {
		return false
	}
	return local.Committer.When.Before(remote.Committer.When)
}
