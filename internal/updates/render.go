package updates

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

const (
	entrySeparator = "----------"
	dateLayout     = "2006-01-02 15:04:05"
)

type RenderOptions struct {
	// MaxFiles limits the file lines per commit; 0 lists every file.
	MaxFiles int
	// Home is collapsed to "~" in the title when set.
	Home     string
	Location *time.Location
}

// Render formats a check result as a notification title and message.
func Render(repoName, repoPath string, result CheckResult, opts RenderOptions) (title, message string) {
	title = repoName + "\n" + collapseHome(repoPath, opts.Home)

	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	blocks := make([]string, 0, len(result.Records))
	for _, rec := range result.Records {
		blocks = append(blocks, renderRecord(rec, opts.MaxFiles, loc))
	}
	return title, strings.TrimRight(strings.Join(blocks, "\n"), "\n")
}

func renderRecord(rec Record, maxFiles int, loc *time.Location) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s]%s\n", rec.Ref, recordSuffix(rec.Kind))
	for i, e := range rec.Entries {
		if i > 0 {
			b.WriteByte('\n')
		}
		renderEntry(&b, e, maxFiles, loc)
	}
	b.WriteByte('\n')
	return b.String()
}

func recordSuffix(k Kind) string {
	switch k {
	case KindNewBranch:
		return " (New branch)"
	case KindNewTag:
		return " (New tag)"
	case KindRemoved:
		return " (Removed)"
	default:
		return ""
	}
}

func renderEntry(b *strings.Builder, e Entry, maxFiles int, loc *time.Location) {
	b.WriteString(entrySeparator)
	b.WriteByte('\n')
	b.WriteString(e.When.In(loc).Format(dateLayout))
	b.WriteByte('\n')
	if e.Synthetic || e.Commit == nil {
		b.WriteString(e.Message)
		return
	}
	fmt.Fprintf(b, "%s: %s", strings.TrimSpace(e.Commit.Author.Name), strings.TrimSpace(e.Commit.Message))

	files := e.Commit.Files
	if len(files) == 0 {
		return
	}
	shown := files
	if maxFiles > 0 && len(files) > maxFiles {
		shown = files[:maxFiles]
	}
	b.WriteString("\nFiles:")
	for _, f := range shown {
		fmt.Fprintf(b, "\n[%d+ %d-] %s", f.Additions, f.Deletions, f.Path)
	}
	if more := len(files) - len(shown); more > 0 {
		fmt.Fprintf(b, "\n(%d more %s)", more, pluralize("file", more))
	}
}

func pluralize(word string, n int) string {
	if n == 1 {
		return word
	}
	return word + "s"
}

func collapseHome(path, home string) string {
	if home == "" {
		return path
	}
	home = filepath.Clean(home)
	clean := filepath.Clean(path)
	if clean == home {
		return "~"
	}
	if rest, ok := strings.CutPrefix(clean, home+string(filepath.Separator)); ok {
		return "~" + string(filepath.Separator) + rest
	}
	return path
}
