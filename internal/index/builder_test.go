package index

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"filetasks/internal/task"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func newBuilder() *Builder {
	return &Builder{Registry: task.NewRegistry(), Emitter: task.NewEmitter(16)}
}

func TestBuild_IndexesTree(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.txt"), "a")
	writeFile(t, filepath.Join(root, "sub", "b.txt"), "b")
	writeFile(t, filepath.Join(root, "sub", "deeper", "c.txt"), "c")

	entries, err := newBuilder().Build(BuildOptions{Locations: []string{root}}, "")
	if err != nil {
		t.Fatal(err)
	}

	var names []string
	for _, e := range entries {
		names = append(names, e.Meta.Name)
	}
	for _, want := range []string{"a.txt", "sub", "b.txt", "deeper", "c.txt"} {
		found := false
		for _, n := range names {
			if n == want {
				found = true
			}
		}
		if !found {
			t.Errorf("entry %q missing from index: %v", want, names)
		}
	}

	for _, e := range entries {
		if !filepath.IsAbs(e.Path) {
			t.Errorf("non-absolute path in index: %s", e.Path)
		}
		if e.Meta.IsFile == e.Meta.IsDirectory {
			t.Errorf("isFile/isDirectory not mutually exclusive for %s", e.Path)
		}
	}
}

func TestBuild_ExcludesWellKnownDirs(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "keep.txt"), "x")
	writeFile(t, filepath.Join(root, "node_modules", "pkg", "mod.js"), "x")
	writeFile(t, filepath.Join(root, ".git", "HEAD"), "x")

	entries, err := newBuilder().Build(BuildOptions{Locations: []string{root}}, "")
	if err != nil {
		t.Fatal(err)
	}

	for _, e := range entries {
		if strings.Contains(e.Path, "node_modules") || strings.Contains(e.Path, ".git") {
			t.Errorf("excluded segment leaked into index: %s", e.Path)
		}
	}
	if len(entries) != 1 || entries[0].Meta.Name != "keep.txt" {
		t.Errorf("unexpected entries: %+v", entries)
	}
}

func TestBuild_ExcludesTransientFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "keep.txt"), "x")
	writeFile(t, filepath.Join(root, "Thumbs.db"), "x")
	writeFile(t, filepath.Join(root, ".DS_Store"), "x")

	entries, err := newBuilder().Build(BuildOptions{Locations: []string{root}}, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Meta.Name != "keep.txt" {
		t.Errorf("transient files leaked into index: %+v", entries)
	}
}

func TestBuild_SkipDirsSegment(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "keep", "a.txt"), "x")
	writeFile(t, filepath.Join(root, "Secret", "b.txt"), "x")

	entries, err := newBuilder().Build(BuildOptions{
		Locations: []string{root},
		SkipDirs:  []string{"secret"}, // case-insensitive segment match
	}, "")
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.Contains(strings.ToLower(e.Path), "secret") {
			t.Errorf("skipped directory leaked: %s", e.Path)
		}
	}
}

func TestBuild_SkipDirsAbsolutePrefix(t *testing.T) {
	root := t.TempDir()
	skipped := filepath.Join(root, "vault")
	writeFile(t, filepath.Join(root, "a.txt"), "x")
	writeFile(t, filepath.Join(skipped, "b.txt"), "x")

	entries, err := newBuilder().Build(BuildOptions{
		Locations: []string{root},
		SkipDirs:  []string{skipped},
	}, "")
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Path, skipped) {
			t.Errorf("absolute skip prefix leaked: %s", e.Path)
		}
	}
}

func TestBuild_MaxIndexSize(t *testing.T) {
	root := t.TempDir()
	for i := 0; i < 20; i++ {
		writeFile(t, filepath.Join(root, "dir", "f"+strings.Repeat("x", i)+".txt"), "x")
	}

	entries, err := newBuilder().Build(BuildOptions{
		Locations:    []string{root},
		MaxIndexSize: 5,
	}, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) > 5 {
		t.Errorf("index exceeded MaxIndexSize: %d entries", len(entries))
	}
}

func TestBuild_Cancelled(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.txt"), "x")

	b := newBuilder()
	b.Registry.RequestCancel("op-1")

	_, err := b.Build(BuildOptions{Locations: []string{root}}, "op-1")
	if !task.IsCancelledErr(err) {
		t.Errorf("got %v, want ErrCancelled", err)
	}
}
