package index

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

var (
	// ErrNotBuilt means index-backed search was requested before any
	// index exists. Callers should trigger a rebuild, not retry.
	ErrNotBuilt = errors.New("index has not been built yet")

	// ErrEmpty means the index exists but contains no entries.
	ErrEmpty = errors.New("index is empty")

	// ErrCorrupt means the index file exists but its JSON does not
	// parse. The file is kept; the read cache is invalidated.
	ErrCorrupt = errors.New("index file is corrupted")
)

// shapeSampleSize is how many entries Load inspects before trusting a
// document. A single malformed sample marks the whole file legacy.
const shapeSampleSize = 20

// LoadResult reports the outcome of reading an index file.
type LoadResult struct {
	Exists        bool
	Entries       []Entry
	LastIndexTime *int64
	IndexedFiles  int
}

// Store reads and writes index documents.
type Store struct {
	log *zap.Logger
}

// NewStore creates a store.
func NewStore(log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{log: log}
}

// Save serializes the document and replaces the target atomically:
// write a sibling temp file, rename it over the target, retrying once
// after unlinking the target, then falling back to copy-then-delete.
// A reader never observes a partially written index.
func (s *Store) Save(path string, entries []Entry, lastIndexTime any) error {
	if entries == nil {
		entries = []Entry{}
	}
	doc := Document{
		Version:       CurrentVersion,
		LastIndexTime: NormalizeTimestamp(lastIndexTime),
		Index:         entries,
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode index: %w", err)
	}

	dir := filepath.Dir(path)
	tmp := filepath.Join(dir, fmt.Sprintf(".%s.%d.%d.%04d.tmp",
		filepath.Base(path), os.Getpid(), time.Now().UnixNano(), rand.Intn(10000)))

	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write index temp file: %w", err)
	}

	if err := os.Rename(tmp, path); err != nil {
		// Windows refuses to rename over an existing target.
		if removeErr := os.Remove(path); removeErr == nil || os.IsNotExist(removeErr) {
			if err = os.Rename(tmp, path); err == nil {
				return nil
			}
		}
		if copyErr := copyFile(tmp, path); copyErr != nil {
			os.Remove(tmp)
			return fmt.Errorf("replace index file: %w", copyErr)
		}
		os.Remove(tmp)
	}
	s.log.Debug("index saved",
		zap.String("path", path), zap.Int("entries", len(entries)))
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// Load reads and validates an index file. A missing file is not an
// error; a document failing the version or sampled-shape check is
// legacy: the file is deleted and the result reports Exists=false,
// forcing a rebuild instead of a partial migration.
func (s *Store) Load(path string) (LoadResult, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return LoadResult{Exists: false}, nil
	}
	if err != nil {
		return LoadResult{}, fmt.Errorf("read index: %w", err)
	}

	var raw struct {
		Version       int               `json:"version"`
		LastIndexTime json.RawMessage   `json:"lastIndexTime"`
		Index         []json.RawMessage `json:"index"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return LoadResult{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	if raw.Version != CurrentVersion || !sampledShapeValid(raw.Index) {
		s.log.Info("legacy index discarded", zap.String("path", path))
		os.Remove(path)
		return LoadResult{Exists: false}, nil
	}

	entries := make([]Entry, 0, len(raw.Index))
	for _, r := range raw.Index {
		var e Entry
		if err := json.Unmarshal(r, &e); err != nil {
			// Samples passed, so stay lenient past the sample: skip the
			// entry rather than fail the whole document.
			continue
		}
		entries = append(entries, e)
	}

	return LoadResult{
		Exists:        true,
		Entries:       entries,
		LastIndexTime: normalizeRawTimestamp(raw.LastIndexTime),
		IndexedFiles:  len(entries),
	}, nil
}

func normalizeRawTimestamp(raw json.RawMessage) *int64 {
	if len(raw) == 0 {
		return nil
	}
	var v any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return nil
	}
	return NormalizeTimestamp(v)
}

// sampledShapeValid checks up to shapeSampleSize entries spread across
// the document for the tuple/record shape: a string path and a payload
// with a string name and boolean isFile/isDirectory.
func sampledShapeValid(entries []json.RawMessage) bool {
	if len(entries) == 0 {
		return true
	}
	step := len(entries) / shapeSampleSize
	if step < 1 {
		step = 1
	}
	checked := 0
	for i := 0; i < len(entries) && checked < shapeSampleSize; i += step {
		if !entryShapeValid(entries[i]) {
			return false
		}
		checked++
	}
	return true
}

func entryShapeValid(raw json.RawMessage) bool {
	var tup []json.RawMessage
	if json.Unmarshal(raw, &tup) != nil || len(tup) != 2 {
		return false
	}
	var path string
	if json.Unmarshal(tup[0], &path) != nil {
		return false
	}
	var payload map[string]json.RawMessage
	if json.Unmarshal(tup[1], &payload) != nil || payload == nil {
		return false
	}
	var name string
	if json.Unmarshal(payload["name"], &name) != nil {
		return false
	}
	var b bool
	if json.Unmarshal(payload["isFile"], &b) != nil {
		return false
	}
	return json.Unmarshal(payload["isDirectory"], &b) == nil
}
