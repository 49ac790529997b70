package driver

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// StdinPath names standard input on the command line.
const StdinPath = "-"

var logSuffixes = []string{".txt", ".log", ".log.gz"}

// IsLogFile reports whether name looks like a crash report or game log.
func IsLogFile(name string) bool {
	lower := strings.ToLower(name)
	for _, s := range logSuffixes {
		if strings.HasSuffix(lower, s) {
			return true
		}
	}
	return false
}

// ListLogFiles returns the sorted log files under dir, skipping hidden
// directories such as .git or .cache.
func ListLogFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if IsLogFile(d.Name()) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}
	sort.Strings(files)
	return files, nil
}

// ExpandPaths replaces directories with their log files. Files and "-" are
// kept as given, whatever their name; paths that cannot be stat'ed are kept
// too so that the failure is reported against them.
func ExpandPaths(paths []string) ([]string, error) {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if p == StdinPath {
			out = append(out, p)
			continue
		}
		info, err := os.Stat(p)
		if err != nil || !info.IsDir() {
			out = append(out, p)
			continue
		}
		files, err := ListLogFiles(p)
		if err != nil {
			return nil, err
		}
		out = append(out, files...)
	}
	return out, nil
}
