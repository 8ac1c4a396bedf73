package git

import (
	"fmt"
	"os/exec"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"sync"
)

// minGitVersion is the oldest git the CLI backend accepts; "pull --ff-only"
// and "name-rev --refs" must behave as they do today.
var minGitVersion = gitVersion{2, 23, 0}

// gitVersion is major, minor, patch.
type gitVersion [3]int

func MinGitVersion() string {
	return minGitVersion.String()
}

func (v gitVersion) String() string {
	return fmt.Sprintf("%d.%d.%d", v[0], v[1], v[2])
}

func (v gitVersion) less(other gitVersion) bool {
	return slices.Compare(v[:], other[:]) < 0
}

// Matches "git version 2.44.0", "git version 2.39.3 (Apple Git-146)" and
// "git version 2.39.3.windows.1".
var gitVersionPattern = regexp.MustCompile(`(\d+)\.(\d+)(?:\.(\d+))?`)

func parseGitVersionOutput(out string) (gitVersion, bool) {
	s := strings.TrimSpace(out)
	if _, rest, ok := strings.Cut(s, "git version"); ok {
		s = rest
	}
	m := gitVersionPattern.FindStringSubmatch(s)
	if m == nil {
		return gitVersion{}, false
	}
	var v gitVersion
	for i, part := range m[1:] {
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return gitVersion{}, false
		}
		v[i] = n
	}
	return v, true
}

func validateGitVersionOutput(out string) error {
	got, ok := parseGitVersionOutput(out)
	if !ok {
		return fmt.Errorf("unable to parse git version output: %q", strings.TrimSpace(out))
	}
	if got.less(minGitVersion) {
		return fmt.Errorf("git %s is too old; the cli backend requires git >= %s", got, minGitVersion)
	}
	return nil
}

// GitVersion returns the raw "git --version" output, cached for the process.
var GitVersion = sync.OnceValues(func() (string, error) {
	raw, err := exec.Command("git", "--version").CombinedOutput()
	out := strings.TrimSpace(string(raw))
	switch {
	case err == nil:
		return out, nil
	case out != "":
		return out, fmt.Errorf("git --version: %v: %s", err, out)
	default:
		return out, fmt.Errorf("git --version: %w", err)
	}
})

func ensureMinGitVersion() error {
	out, err := GitVersion()
	if err != nil {
		return err
	}
	return validateGitVersionOutput(out)
}
