// Package index persists and rebuilds the flat filesystem snapshot
// used for offline search.
package index

import (
	"encoding/json"
	"fmt"
)

// Meta is the stored payload of one index entry. Modified is always
// milliseconds since epoch inside a stored document, never a date
// string.
type Meta struct {
	Name        string `json:"name"`
	Path        string `json:"path"`
	IsDirectory bool   `json:"isDirectory"`
	IsFile      bool   `json:"isFile"`
	Size        int64  `json:"size"`
	Modified    int64  `json:"modified"`
}

// Entry is one indexed filesystem object. It persists as a two-element
// JSON array: [absolutePath, payload].
type Entry struct {
	Path string
	Meta Meta
}

// MarshalJSON encodes the entry as its on-disk tuple form.
func (e Entry) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{e.Path, e.Meta})
}

// UnmarshalJSON decodes the on-disk tuple form.
func (e *Entry) UnmarshalJSON(data []byte) error {
	var tup []json.RawMessage
	if err := json.Unmarshal(data, &tup); err != nil {
		return err
	}
	if len(tup) != 2 {
		return fmt.Errorf("index entry: want 2 elements, got %d", len(tup))
	}
	if err := json.Unmarshal(tup[0], &e.Path); err != nil {
		return fmt.Errorf("index entry path: %w", err)
	}
	if err := json.Unmarshal(tup[1], &e.Meta); err != nil {
		return fmt.Errorf("index entry payload: %w", err)
	}
	return nil
}

// Document is the on-disk index file. Version is always 1; anything
// else is treated as legacy and rebuilt, never migrated.
type Document struct {
	Version       int     `json:"version"`
	LastIndexTime *int64  `json:"lastIndexTime"`
	Index         []Entry `json:"index"`
}

// CurrentVersion is the only document version this build reads or
// writes.
const CurrentVersion = 1
