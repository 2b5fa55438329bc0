// Package fsutil holds the filtering, normalization and attribute
// helpers shared by every filesystem task.
package fsutil

import (
	"path/filepath"
	"strings"
	"time"
)

// Filters narrows results by file type, size and modification date.
// Zero values disable the corresponding check.
type Filters struct {
	Type     string `json:"type,omitempty"`
	MinSize  int64  `json:"minSize,omitempty"`
	MaxSize  int64  `json:"maxSize,omitempty"`
	DateFrom string `json:"dateFrom,omitempty"`
	DateTo   string `json:"dateTo,omitempty"`
}

var typeExtensions = map[string]map[string]bool{
	"image": {
		".jpg": true, ".jpeg": true, ".png": true, ".gif": true,
		".bmp": true, ".webp": true, ".svg": true, ".ico": true,
		".tif": true, ".tiff": true, ".heic": true, ".avif": true,
	},
	"video": {
		".mp4": true, ".mkv": true, ".avi": true, ".mov": true,
		".wmv": true, ".flv": true, ".webm": true, ".m4v": true,
		".mpg": true, ".mpeg": true, ".3gp": true,
	},
	"audio": {
		".mp3": true, ".wav": true, ".flac": true, ".aac": true,
		".ogg": true, ".wma": true, ".m4a": true, ".opus": true,
		".mid": true, ".midi": true,
	},
	"document": {
		".pdf": true, ".doc": true, ".docx": true, ".xls": true,
		".xlsx": true, ".ppt": true, ".pptx": true, ".odt": true,
		".ods": true, ".odp": true, ".txt": true, ".rtf": true,
		".md": true, ".epub": true,
	},
	"archive": {
		".zip": true, ".rar": true, ".7z": true, ".tar": true,
		".gz": true, ".bz2": true, ".xz": true, ".zst": true,
		".iso": true, ".cab": true,
	},
}

// DateRange is a parsed, inclusive modification-time window.
type DateRange struct {
	From *time.Time
	To   *time.Time
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return &t
		}
	}
	return nil
}

// ParseDateRange converts the optional dateFrom/dateTo strings into a
// DateRange. DateTo is extended to the end of that day so "through this
// day" is inclusive.
func ParseDateRange(f Filters) DateRange {
	r := DateRange{From: parseDate(f.DateFrom), To: parseDate(f.DateTo)}
	if r.To != nil {
		end := time.Date(r.To.Year(), r.To.Month(), r.To.Day(),
			23, 59, 59, 999_000_000, r.To.Location())
		r.To = &end
	}
	return r
}

// MatchesDateRange reports whether modified falls inside the range.
func MatchesDateRange(modified time.Time, r DateRange) bool {
	if r.From != nil && modified.Before(*r.From) {
		return false
	}
	if r.To != nil && modified.After(*r.To) {
		return false
	}
	return true
}

// Compiled is a Filters value with the date range parsed once.
type Compiled struct {
	Filters
	Range DateRange
	exts  map[string]bool
}

// Compile parses the date range and resolves the type category.
func (f Filters) Compile() Compiled {
	return Compiled{
		Filters: f,
		Range:   ParseDateRange(f),
		exts:    typeExtensions[strings.ToLower(f.Type)],
	}
}

// Match evaluates the type, size and date predicates against one entry.
// Directories always pass the size check; the "folder" type accepts
// only directories.
func (c Compiled) Match(name string, isDir bool, size int64, modified time.Time) bool {
	switch strings.ToLower(c.Type) {
	case "", "all":
	case "folder":
		if !isDir {
			return false
		}
	default:
		if isDir {
			return false
		}
		if c.exts == nil || !c.exts[strings.ToLower(filepath.Ext(name))] {
			return false
		}
	}

	if !isDir {
		if c.MinSize > 0 && size < c.MinSize {
			return false
		}
		if c.MaxSize > 0 && size > c.MaxSize {
			return false
		}
	}

	return MatchesDateRange(modified, c.Range)
}
