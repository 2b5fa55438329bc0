//go:build !windows

package fsutil

import (
	"path/filepath"
	"strings"
)

// platformAttrs classifies a path on Unix-like systems, where hidden
// means a dot-prefixed name and there is no separate system attribute.
func platformAttrs(path string) Attrs {
	base := filepath.Base(path)
	return Attrs{Hidden: strings.HasPrefix(base, ".")}
}
