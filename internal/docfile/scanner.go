package docfile

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DiscoveredBoard is a board file found by ScanDir.
type DiscoveredBoard struct {
	Path string
	Name string
	// Group is the first directory below the scan root, empty at the root.
	Group string
}

// ScanDir walks dir and returns every board file in it, sorted by path.
// A missing dir yields no boards. Hidden files and directories are skipped.
func ScanDir(dir string) ([]DiscoveredBoard, error) {
	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	if !info.IsDir() {
		return nil, nil
	}

	var boards []DiscoveredBoard
	err = filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil //nolint:nilerr // skip unreadable entries
		}
		name := d.Name()
		if path != dir && strings.HasPrefix(name, ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !IsBoardFile(path) {
			return nil
		}

		rel, _ := filepath.Rel(dir, path)
		parts := strings.Split(rel, string(filepath.Separator))
		b := DiscoveredBoard{Path: path, Name: NameOf(path)}
		if len(parts) > 1 {
			b.Group = parts[0]
		}
		boards = append(boards, b)
		return nil
	})

	sort.Slice(boards, func(i, j int) bool { return boards[i].Path < boards[j].Path })
	return boards, err
}

// CountGroups returns the number of distinct groups in boards.
func CountGroups(boards []DiscoveredBoard) int {
	seen := make(map[string]struct{})
	for _, b := range boards {
		seen[b.Group] = struct{}{}
	}
	return len(seen)
}
