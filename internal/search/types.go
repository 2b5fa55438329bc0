package search

import (
	"time"

	"go.uber.org/zap"

	"filetasks/internal/fsutil"
	"filetasks/internal/index"
	"filetasks/internal/task"
)

const (
	// statBatchSize bounds concurrent stat calls per directory.
	statBatchSize = 50

	// scanBatchSize bounds concurrent content scans; tighter than the
	// stat batch because a scan is far more expensive.
	scanBatchSize = 8

	// maxScanFileSize skips huge files without opening them.
	maxScanFileSize = 1 << 20

	defaultMaxResults = 1000
	defaultMaxDepth   = 64
)

// Result is one name-search hit. IsSystemProtected is part of the
// wire shape but stays false: system-protected entries are excluded
// from results outright.
type Result struct {
	Name              string    `json:"name"`
	Path              string    `json:"path"`
	IsDirectory       bool      `json:"isDirectory"`
	IsFile            bool      `json:"isFile"`
	Size              int64     `json:"size"`
	Modified          time.Time `json:"modified"`
	IsHidden          bool      `json:"isHidden"`
	IsSystemProtected bool      `json:"isSystemProtected,omitempty"`
}

// ContentResult extends Result with the first match's location and a
// trimmed context string.
type ContentResult struct {
	Result
	MatchContext    string `json:"matchContext,omitempty"`
	MatchLineNumber int    `json:"matchLineNumber,omitempty"`
}

// Searcher runs all search variants against shared engine state.
type Searcher struct {
	Registry   *task.Registry
	Emitter    *task.Emitter
	Hidden     *fsutil.Resolver
	IndexCache *index.Cache
	Log        *zap.Logger
}

func (s *Searcher) logger() *zap.Logger {
	if s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}

// NameOptions configures live-disk name search.
type NameOptions struct {
	Root       string         `json:"root"`
	Query      string         `json:"query"`
	UseRegex   bool           `json:"useRegex,omitempty"`
	MaxDepth   int            `json:"maxDepth,omitempty"`
	MaxResults int            `json:"maxResults,omitempty"`
	Filters    fsutil.Filters `json:"filters,omitempty"`
}

// ContentOptions configures live-disk content search.
type ContentOptions struct {
	Root       string         `json:"root"`
	Query      string         `json:"query"`
	UseRegex   bool           `json:"useRegex,omitempty"`
	MaxDepth   int            `json:"maxDepth,omitempty"`
	MaxResults int            `json:"maxResults,omitempty"`
	Filters    fsutil.Filters `json:"filters,omitempty"`
}

// ContentListOptions configures content search over an explicit
// candidate list, for callers that narrowed candidates by other means.
type ContentListOptions struct {
	Paths      []string       `json:"paths"`
	Query      string         `json:"query"`
	UseRegex   bool           `json:"useRegex,omitempty"`
	MaxResults int            `json:"maxResults,omitempty"`
	Filters    fsutil.Filters `json:"filters,omitempty"`
}

// IndexOptions configures index-backed search. Depth is unlimited
// because the index is already flat.
type IndexOptions struct {
	IndexPath  string         `json:"indexPath"`
	Query      string         `json:"query"`
	UseRegex   bool           `json:"useRegex,omitempty"`
	MaxResults int            `json:"maxResults,omitempty"`
	Filters    fsutil.Filters `json:"filters,omitempty"`
}

// dirFrame is one stack slot of the iterative traversal.
type dirFrame struct {
	path  string
	depth int
}
