package fsutil

import (
	"path/filepath"
	"runtime"
	"strings"
)

// caseInsensitiveFS is true on filesystems that fold case by default.
var caseInsensitiveFS = runtime.GOOS == "windows" || runtime.GOOS == "darwin"

// NormalizeForCompare resolves a path for exclusion-prefix matching.
// Case is folded only where the filesystem ignores it; the result is
// never meant for display.
func NormalizeForCompare(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = filepath.Clean(path)
	}
	if caseInsensitiveFS {
		return strings.ToLower(abs)
	}
	return abs
}

// HasPathPrefix reports whether path sits at or below prefix, both
// already normalized. A partial segment ("/foo/bar" vs "/foo/barbaz")
// is not a match.
func HasPathPrefix(path, prefix string) bool {
	if path == prefix {
		return true
	}
	if !strings.HasPrefix(path, prefix) {
		return false
	}
	sep := string(filepath.Separator)
	return strings.HasSuffix(prefix, sep) || strings.HasPrefix(path[len(prefix):], sep)
}
