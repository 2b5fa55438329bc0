//go:build windows

package fsutil

import (
	"path/filepath"
	"strings"

	"golang.org/x/sys/windows"
)

// platformAttrs classifies a path on Windows through the file
// attribute bits. A failed query falls back to the dot-prefix
// heuristic rather than reporting an error.
func platformAttrs(path string) Attrs {
	p, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return fallbackAttrs(path)
	}
	attrs, err := windows.GetFileAttributes(p)
	if err != nil {
		return fallbackAttrs(path)
	}
	return Attrs{
		Hidden:          attrs&windows.FILE_ATTRIBUTE_HIDDEN != 0,
		SystemProtected: attrs&windows.FILE_ATTRIBUTE_SYSTEM != 0,
	}
}

func fallbackAttrs(path string) Attrs {
	return Attrs{Hidden: strings.HasPrefix(filepath.Base(path), ".")}
}
