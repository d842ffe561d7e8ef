// Package fsutil holds small file-system helpers shared by the servers and
// the command-line tools.
package fsutil

import (
	"path/filepath"
	"strings"
)

// WithinRoot reports whether target is root or lies below it. Both paths are
// compared lexically; symlinks are not resolved.
func WithinRoot(root, target string) bool {
	rel, err := filepath.Rel(root, target)
	if err != nil {
		return false
	}
	rel = filepath.ToSlash(rel)
	return rel != ".." && !strings.HasPrefix(rel, "../")
}
