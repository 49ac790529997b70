package source

import (
	"bytes"
	"path/filepath"
	"strings"
)

// normalizeCRLF replaces every \r\n with \n and leaves lone \r alone. The
// flag reports whether anything changed.
func normalizeCRLF(content []byte) ([]byte, bool) {
	if bytes.IndexByte(content, '\r') < 0 {
		return content, false
	}
	out := make([]byte, 0, len(content))
	changed := false
	for i := 0; i < len(content); i++ {
		if content[i] == '\r' && i+1 < len(content) && content[i+1] == '\n' {
			changed = true
			continue
		}
		out = append(out, content[i])
	}
	return out, changed
}

func removeBOM(content []byte) ([]byte, bool) {
	if bytes.HasPrefix(content, utf8BOM) {
		return content[len(utf8BOM):], true
	}
	return content, false
}

func normalizePath(p string) string {
	// one form for cross-platform output
	return filepath.ToSlash(filepath.Clean(p))
}

// RelativePath shortens path against baseDir for display. Paths outside
// baseDir come back absolute.
func RelativePath(path, baseDir string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	base, err := filepath.Abs(baseDir)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(base, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return normalizePath(abs), nil
	}
	return normalizePath(rel), nil
}
