// Package buildinfo reports how the gitmon binary was built.
package buildinfo

import (
	"runtime/debug"
	"strings"
)

var readBuildInfo = debug.ReadBuildInfo

// Version returns the module version or "dev" when unset.
func Version() string {
	info, ok := readBuildInfo()
	if !ok || info == nil {
		return "dev"
	}
	switch v := info.Main.Version; v {
	case "", "(devel)":
		return "dev"
	default:
		return v
	}
}

func setting(key string) string {
	info, ok := readBuildInfo()
	if !ok || info == nil {
		return ""
	}
	for _, s := range info.Settings {
		if s.Key == key {
			return s.Value
		}
	}
	return ""
}

// Revision returns the abbreviated VCS revision, marked "-dirty" when the
// tree had local modifications.
func Revision() string {
	rev := setting("vcs.revision")
	if len(rev) > 12 {
		rev = rev[:12]
	}
	if rev != "" && setting("vcs.modified") == "true" {
		rev += "-dirty"
	}
	return rev
}

// Tags returns the build tags recorded at compile time.
func Tags() string {
	return setting("-tags")
}

// VersionWithTags returns the version followed by the revision and build
// tags when known, e.g. "v1.2.0 (rev 0123456789ab, tags: netgo)".
func VersionWithTags() string {
	var extra []string
	if rev := Revision(); rev != "" {
		extra = append(extra, "rev "+rev)
	}
	if tags := Tags(); tags != "" {
		extra = append(extra, "tags: "+tags)
	}
	if len(extra) == 0 {
		return Version()
	}
	return Version() + " (" + strings.Join(extra, ", ") + ")"
}
