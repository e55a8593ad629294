package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// EnsureDirs creates all directories with 0o750 permissions.
func EnsureDirs(dirs ...string) error {
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// CorruptCopies lists the set-aside copies of path (path.corrupt-*), oldest first.
func CorruptCopies(path string) []string {
	matches, _ := filepath.Glob(path + ".corrupt-*")
	sort.Strings(matches)
	return matches
}
