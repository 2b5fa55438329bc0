package fsutil

import (
	"path/filepath"
	"strings"
)

// textExtensions is the allow-list of extension keys eligible for
// content scanning. Keys come from TextExtensionKey, so dotfiles like
// .gitignore appear without the dot.
var textExtensions = map[string]bool{
	"txt": true, "md": true, "markdown": true, "rst": true, "adoc": true,
	"log": true, "csv": true, "tsv": true,

	"go": true, "js": true, "mjs": true, "ts": true, "jsx": true,
	"tsx": true, "py": true, "rb": true, "rs": true, "c": true,
	"h": true, "cc": true, "cpp": true, "hpp": true, "java": true,
	"kt": true, "kts": true, "cs": true, "php": true, "swift": true,
	"m": true, "mm": true, "pl": true, "pm": true, "lua": true,
	"r": true, "dart": true, "ex": true, "exs": true, "erl": true,
	"hs": true, "scala": true, "clj": true, "groovy": true,
	"vue": true, "svelte": true, "sql": true, "tex": true,

	"sh": true, "bash": true, "zsh": true, "fish": true, "ps1": true,
	"bat": true, "cmd": true,

	"json": true, "yaml": true, "yml": true, "toml": true, "ini": true,
	"cfg": true, "conf": true, "config": true, "env": true,
	"properties": true, "xml": true, "plist": true, "gradle": true,
	"lock": true,

	"html": true, "htm": true, "xhtml": true, "css": true, "scss": true,
	"sass": true, "less": true,

	"gitignore": true, "gitattributes": true, "gitmodules": true,
	"dockerignore": true, "editorconfig": true, "npmrc": true,
	"nvmrc": true, "makefile": true, "dockerfile": true,
	"gemfile": true, "rakefile": true, "procfile": true, "license": true,
	"readme": true, "authors": true, "changelog": true,
}

// TextExtensionKey returns the lowercase extension without the dot.
// Extension-less files resolve to their lowercase basename with a
// leading dot stripped, so ".gitignore" and "Makefile" both yield keys
// usable against the allow-list.
func TextExtensionKey(path string) string {
	base := strings.ToLower(filepath.Base(path))
	if i := strings.LastIndex(base, "."); i > 0 {
		return base[i+1:]
	}
	return strings.TrimPrefix(base, ".")
}

// IsTextCandidate reports whether the file is eligible for content
// scanning by extension alone.
func IsTextCandidate(path string) bool {
	return textExtensions[TextExtensionKey(path)]
}
