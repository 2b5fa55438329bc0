package search

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"filetasks/internal/fsutil"
	"filetasks/internal/index"
	"filetasks/internal/task"
)

func saveIndex(t *testing.T, entries []index.Entry) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "index.json")
	if err := index.NewStore(nil).Save(path, entries, time.Now()); err != nil {
		t.Fatal(err)
	}
	return path
}

func fileEntry(path string, size int64) index.Entry {
	return index.Entry{
		Path: path,
		Meta: index.Meta{
			Name:     filepath.Base(path),
			Path:     path,
			IsFile:   true,
			Size:     size,
			Modified: time.Now().UnixMilli(),
		},
	}
}

func TestIndexNames_ExactFirst(t *testing.T) {
	idx := saveIndex(t, []index.Entry{
		fileEntry("/data/zebra-report.txt", 1),
		fileEntry("/data/report.txt", 1),
		fileEntry("/data/annual-report.txt", 1),
	})

	results, err := newSearcher().IndexNames(IndexOptions{IndexPath: idx, Query: "report.txt"}, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}
	if results[0].Name != "report.txt" {
		t.Errorf("exact match not first: %+v", results)
	}
	if results[1].Name != "annual-report.txt" || results[2].Name != "zebra-report.txt" {
		t.Errorf("remaining results not alphabetical: %+v", results)
	}
}

func TestIndexNames_NotBuilt(t *testing.T) {
	_, err := newSearcher().IndexNames(IndexOptions{
		IndexPath: filepath.Join(t.TempDir(), "none.json"),
		Query:     "x",
	}, "")
	if !errors.Is(err, index.ErrNotBuilt) {
		t.Errorf("got %v, want ErrNotBuilt", err)
	}
}

func TestIndexNames_Empty(t *testing.T) {
	idx := saveIndex(t, nil)
	_, err := newSearcher().IndexNames(IndexOptions{IndexPath: idx, Query: "x"}, "")
	if !errors.Is(err, index.ErrEmpty) {
		t.Errorf("got %v, want ErrEmpty", err)
	}
}

func TestIndexNames_NoMatchesIsNotAnError(t *testing.T) {
	idx := saveIndex(t, []index.Entry{fileEntry("/data/a.txt", 1)})
	results, err := newSearcher().IndexNames(IndexOptions{IndexPath: idx, Query: "zzz"}, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 0 {
		t.Errorf("unexpected results: %+v", results)
	}
}

func TestIndexNames_SystemProtectedExcluded(t *testing.T) {
	idx := saveIndex(t, []index.Entry{
		fileEntry("/data/report.txt", 1),
		fileEntry("/data/report-system.txt", 1),
	})

	cache := fsutil.NewHiddenCache()
	cache.Put("/data/report-system.txt", fsutil.Attrs{SystemProtected: true})
	cache.Put("/data/report.txt", fsutil.Attrs{})
	s := newSearcher()
	s.Hidden = fsutil.NewResolverWithCache(cache, nil)

	results, err := s.IndexNames(IndexOptions{IndexPath: idx, Query: "report"}, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].Name != "report.txt" {
		t.Errorf("system-protected entry leaked: %+v", results)
	}
}

func TestIndexNames_Cancelled(t *testing.T) {
	idx := saveIndex(t, []index.Entry{fileEntry("/data/a.txt", 1)})

	s := newSearcher()
	s.Registry.RequestCancel("op-1")

	_, err := s.IndexNames(IndexOptions{IndexPath: idx, Query: "a"}, "op-1")
	if !task.IsCancelledErr(err) {
		t.Errorf("got %v, want ErrCancelled", err)
	}
}

func TestIndexContent_SingleFile(t *testing.T) {
	root := t.TempDir()
	target := filepath.Join(root, "indexed.txt")
	writeFile(t, target, "indexed searchable content\n")

	info := statFile(t, target)
	idx := saveIndex(t, []index.Entry{{
		Path: target,
		Meta: index.Meta{
			Name:     "indexed.txt",
			Path:     target,
			IsFile:   true,
			Size:     info.size,
			Modified: info.modified,
		},
	}})

	results, err := newSearcher().IndexContent(IndexOptions{IndexPath: idx, Query: "searchable"}, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want exactly 1", len(results))
	}
	if results[0].Name != "indexed.txt" {
		t.Errorf("Name = %q", results[0].Name)
	}
	if !strings.Contains(results[0].MatchContext, "searchable") {
		t.Errorf("MatchContext %q does not contain the query", results[0].MatchContext)
	}
}

func TestIndexContent_SkipsDirectoriesAndNonText(t *testing.T) {
	root := t.TempDir()
	hit := filepath.Join(root, "hit.txt")
	bin := filepath.Join(root, "blob.bin")
	writeFile(t, hit, "needle\n")
	writeFile(t, bin, "needle\n")

	dirEntry := index.Entry{
		Path: root,
		Meta: index.Meta{Name: filepath.Base(root), Path: root, IsDirectory: true},
	}
	idx := saveIndex(t, []index.Entry{
		dirEntry,
		fileEntry(hit, statFile(t, hit).size),
		fileEntry(bin, statFile(t, bin).size),
	})

	results, err := newSearcher().IndexContent(IndexOptions{IndexPath: idx, Query: "needle"}, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].Path != hit {
		t.Errorf("got %+v, want only %s", results, hit)
	}
}

type fileStat struct {
	size     int64
	modified int64
}

func statFile(t *testing.T, path string) fileStat {
	t.Helper()
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	return fileStat{size: info.Size(), modified: info.ModTime().UnixMilli()}
}
