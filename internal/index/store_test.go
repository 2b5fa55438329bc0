package index

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleEntries(n int) []Entry {
	entries := make([]Entry, 0, n)
	for i := 0; i < n; i++ {
		path := filepath.Join("/data", "file"+string(rune('a'+i%26))+".txt")
		entries = append(entries, Entry{
			Path: path,
			Meta: Meta{
				Name:     filepath.Base(path),
				Path:     path,
				IsFile:   true,
				Size:     int64(i * 10),
				Modified: time.Now().UnixMilli(),
			},
		})
	}
	return entries
}

func TestStore_RoundTrip(t *testing.T) {
	s := NewStore(nil)
	path := filepath.Join(t.TempDir(), "index.json")
	entries := sampleEntries(30)
	saved := time.Now().UnixMilli()

	require.NoError(t, s.Save(path, entries, saved))

	res, err := s.Load(path)
	require.NoError(t, err)
	assert.True(t, res.Exists)
	assert.Equal(t, len(entries), res.IndexedFiles)
	require.NotNil(t, res.LastIndexTime)
	assert.Equal(t, saved, *res.LastIndexTime)
	assert.Equal(t, entries[3].Path, res.Entries[3].Path)
	assert.Equal(t, entries[3].Meta, res.Entries[3].Meta)
}

func TestStore_RoundTripEmpty(t *testing.T) {
	s := NewStore(nil)
	path := filepath.Join(t.TempDir(), "index.json")

	require.NoError(t, s.Save(path, nil, nil))

	res, err := s.Load(path)
	require.NoError(t, err)
	assert.True(t, res.Exists)
	assert.Equal(t, 0, res.IndexedFiles)
	assert.Nil(t, res.LastIndexTime)
}

func TestStore_SaveOverwritesAtomically(t *testing.T) {
	s := NewStore(nil)
	dir := t.TempDir()
	path := filepath.Join(dir, "index.json")

	require.NoError(t, s.Save(path, sampleEntries(5), nil))
	require.NoError(t, s.Save(path, sampleEntries(8), nil))

	res, err := s.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 8, res.IndexedFiles)

	// No temp files left behind.
	matches, err := filepath.Glob(filepath.Join(dir, "*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestStore_MissingFile(t *testing.T) {
	s := NewStore(nil)
	res, err := s.Load(filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, err)
	assert.False(t, res.Exists)
}

func TestStore_LegacyShapeDeleted(t *testing.T) {
	s := NewStore(nil)
	path := filepath.Join(t.TempDir(), "index.json")

	// Entries as plain objects, not [path, payload] tuples.
	legacy := `{"version":1,"lastIndexTime":123,"index":[{"path":"/a","name":"a"}]}`
	require.NoError(t, os.WriteFile(path, []byte(legacy), 0o644))

	res, err := s.Load(path)
	require.NoError(t, err)
	assert.False(t, res.Exists, "legacy document must be reported as absent")

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "legacy file must be deleted")
}

func TestStore_LegacyVersionDeleted(t *testing.T) {
	s := NewStore(nil)
	path := filepath.Join(t.TempDir(), "index.json")

	doc := `{"version":2,"lastIndexTime":null,"index":[]}`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	res, err := s.Load(path)
	require.NoError(t, err)
	assert.False(t, res.Exists)
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestStore_WellFormedNeverFlaggedLegacy(t *testing.T) {
	s := NewStore(nil)
	path := filepath.Join(t.TempDir(), "index.json")
	require.NoError(t, s.Save(path, sampleEntries(100), time.Now()))

	res, err := s.Load(path)
	require.NoError(t, err)
	assert.True(t, res.Exists)
	_, statErr := os.Stat(path)
	assert.NoError(t, statErr, "well-formed file must not be deleted")
}

func TestStore_CorruptJSON(t *testing.T) {
	s := NewStore(nil)
	path := filepath.Join(t.TempDir(), "index.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := s.Load(path)
	require.ErrorIs(t, err, ErrCorrupt)

	// Unlike the legacy case, a corrupt file is kept.
	_, statErr := os.Stat(path)
	assert.NoError(t, statErr)
}

func TestEntry_TupleEncoding(t *testing.T) {
	e := Entry{
		Path: "/data/a.txt",
		Meta: Meta{Name: "a.txt", Path: "/data/a.txt", IsFile: true, Size: 7, Modified: 1700000000000},
	}
	data, err := json.Marshal(e)
	require.NoError(t, err)
	assert.True(t, data[0] == '[', "entry must encode as a JSON array: %s", data)

	var back Entry
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, e, back)
}

func TestCache_ReadAndInvalidate(t *testing.T) {
	s := NewStore(nil)
	c := NewCache()
	path := filepath.Join(t.TempDir(), "index.json")

	require.NoError(t, s.Save(path, sampleEntries(3), nil))
	doc1, err := c.Read(path, ErrNotBuilt)
	require.NoError(t, err)
	assert.Len(t, doc1.Index, 3)

	// Unchanged mtime serves the same parse.
	doc2, err := c.Read(path, ErrNotBuilt)
	require.NoError(t, err)
	assert.Same(t, doc1, doc2)

	// A rewrite with a newer mtime invalidates the slot.
	require.NoError(t, s.Save(path, sampleEntries(5), nil))
	future := time.Now().Add(2 * time.Second)
	require.NoError(t, os.Chtimes(path, future, future))

	doc3, err := c.Read(path, ErrNotBuilt)
	require.NoError(t, err)
	assert.Len(t, doc3.Index, 5)
}

func TestCache_MissingFile(t *testing.T) {
	c := NewCache()
	_, err := c.Read(filepath.Join(t.TempDir(), "none.json"), ErrNotBuilt)
	require.ErrorIs(t, err, ErrNotBuilt)
}

func TestCache_Corrupt(t *testing.T) {
	c := NewCache()
	path := filepath.Join(t.TempDir(), "index.json")
	require.NoError(t, os.WriteFile(path, []byte("]["), 0o644))

	_, err := c.Read(path, ErrNotBuilt)
	require.ErrorIs(t, err, ErrCorrupt)
}

func TestNormalizeTimestamp(t *testing.T) {
	now := time.Now()
	ms := now.UnixMilli()

	cases := []struct {
		name string
		in   any
		want *int64
	}{
		{"time.Time", now, &ms},
		{"int64", ms, &ms},
		{"float64", float64(ms), &ms},
		{"numeric string", "1700000000000", ptr(int64(1700000000000))},
		{"nil", nil, nil},
		{"nan", nanValue(), nil},
		{"garbage string", "not a date", nil},
		{"bool", true, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := NormalizeTimestamp(tc.in)
			if tc.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, *tc.want, *got)
		})
	}

	t.Run("date string", func(t *testing.T) {
		got := NormalizeTimestamp("2024-03-01")
		require.NotNil(t, got)
		want := time.Date(2024, 3, 1, 0, 0, 0, 0, time.Local).UnixMilli()
		assert.Equal(t, want, *got)
	})
}

func ptr(v int64) *int64 { return &v }

func nanValue() float64 {
	zero := 0.0
	return zero / zero
}
