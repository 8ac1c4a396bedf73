// Package discovery finds git repositories below a directory.
package discovery

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

const DefaultDepth = 3

type Repo struct {
	Name string
	Path string
}

// Scan looks for repositories up to depth directory levels below root. A
// repository is reported as "<dir> (<name>)" and is not descended into.
// Hidden and unreadable directories below root are skipped.
func Scan(root, name string, depth int) ([]Repo, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}
	var repos []Repo
	scanEntries(root, entries, name, depth, &repos)
	return repos, nil
}

func scanEntries(dir string, entries []os.DirEntry, name string, depth int, repos *[]Repo) {
	if depth <= 0 {
		return
	}
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if !isDir(entry, path) {
			continue
		}
		if IsRepository(path) {
			slog.Info("found repository", slog.String("path", path))
			*repos = append(*repos, Repo{Name: fmt.Sprintf("%s (%s)", entry.Name(), name), Path: path})
			continue
		}
		children, err := os.ReadDir(path)
		if err != nil {
			slog.Debug("skipping unreadable directory", slog.String("path", path), slog.Any("error", err))
			continue
		}
		scanEntries(path, children, name, depth-1, repos)
	}
}

// isDir follows symlinks so linked checkouts are found too.
func isDir(entry os.DirEntry, path string) bool {
	if entry.IsDir() {
		return true
	}
	if entry.Type()&os.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// IsRepository reports whether dir has a .git directory.
func IsRepository(dir string) bool {
	info, err := os.Stat(filepath.Join(dir, ".git"))
	return err == nil && info.IsDir()
}
