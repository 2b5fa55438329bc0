// Package listing implements the batched one-level directory
// enumeration used for interactive browsing.
package listing

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"filetasks/internal/fsutil"
	"filetasks/internal/task"
)

// DefaultBatchSize is how many raw entries accumulate before a batch
// is resolved and emitted.
const DefaultBatchSize = 500

// Options configures a directory listing.
type Options struct {
	DirPath       string `json:"dirPath"`
	BatchSize     int    `json:"batchSize,omitempty"`
	StreamOnly    bool   `json:"streamOnly,omitempty"`
	IncludeHidden bool   `json:"includeHidden,omitempty"`
}

// Item is one resolved directory entry.
type Item struct {
	Name            string    `json:"name"`
	Path            string    `json:"path"`
	IsDirectory     bool      `json:"isDirectory"`
	IsFile          bool      `json:"isFile"`
	IsSymlink       bool      `json:"isSymlink,omitempty"`
	IsBrokenSymlink bool      `json:"isBrokenSymlink,omitempty"`
	SymlinkTarget   string    `json:"symlinkTarget,omitempty"`
	IsHidden        bool      `json:"isHidden,omitempty"`
	IsApplication   bool      `json:"isApplication,omitempty"`
	IsShortcut      bool      `json:"isShortcut,omitempty"`
	IsDesktopEntry  bool      `json:"isDesktopEntry,omitempty"`
	Size            int64     `json:"size"`
	Modified        time.Time `json:"modified"`
}

// Progress is the payload of list-directory progress messages. Each
// resolved batch streams out regardless of StreamOnly.
type Progress struct {
	Items []Item `json:"items"`
	Total int    `json:"total"`
	Done  bool   `json:"done"`
}

// Result is the listing's return value. With StreamOnly set, Items is
// empty and the caller renders from progress events alone.
type Result struct {
	Items []Item `json:"items"`
	Total int    `json:"total"`
}

// Lister enumerates directories in resolved batches.
type Lister struct {
	Registry *task.Registry
	Emitter  *task.Emitter
	Hidden   *fsutil.Resolver
	Log      *zap.Logger
}

// List opens the directory and iterates its entries in batches of
// BatchSize, resolving each batch concurrently before emitting it.
// System-protected entries are always excluded; hidden entries only
// when IncludeHidden is unset.
func (l *Lister) List(opts Options, opID string) (Result, error) {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}

	f, err := os.Open(opts.DirPath)
	if err != nil {
		return Result{}, fmt.Errorf("open directory: %w", err)
	}
	defer f.Close()

	var res Result
	for {
		if err := l.Registry.Check(opID); err != nil {
			return Result{}, err
		}

		raw, readErr := f.ReadDir(opts.BatchSize)
		if len(raw) > 0 {
			batch, err := l.resolveBatch(opts, raw, opID)
			if err != nil {
				return Result{}, err
			}
			res.Total += len(batch)
			l.Emitter.Emit(task.KindListDirectory, opID, Progress{
				Items: batch,
				Total: res.Total,
			})
			if !opts.StreamOnly {
				res.Items = append(res.Items, batch...)
			}
		}

		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return Result{}, fmt.Errorf("read directory: %w", readErr)
		}
	}

	l.Emitter.Emit(task.KindListDirectory, opID, Progress{Total: res.Total, Done: true})
	if res.Items == nil {
		res.Items = []Item{}
	}
	return res, nil
}

// resolveBatch resolves metadata, symlinks, decoration and hidden
// status for one batch concurrently, then filters it.
func (l *Lister) resolveBatch(opts Options, raw []fs.DirEntry, opID string) ([]Item, error) {
	items := make([]Item, len(raw))
	var wg sync.WaitGroup
	for i, de := range raw {
		if err := l.Registry.Check(opID); err != nil {
			return nil, err
		}
		wg.Add(1)
		go func(i int, de fs.DirEntry) {
			defer wg.Done()
			items[i] = resolveItem(opts.DirPath, de)
		}(i, de)
	}
	wg.Wait()

	paths := make([]string, len(items))
	for i, it := range items {
		paths[i] = it.Path
	}
	attrs := l.Hidden.ResolveBatch(paths)

	out := make([]Item, 0, len(items))
	for i, it := range items {
		if attrs[i].SystemProtected {
			continue
		}
		it.IsHidden = attrs[i].Hidden
		if it.IsHidden && !opts.IncludeHidden {
			continue
		}
		out = append(out, it)
	}
	return out, nil
}

// resolveItem builds one Item. A failed stat yields a zero-size,
// now-dated placeholder instead of dropping the entry.
func resolveItem(dir string, de fs.DirEntry) Item {
	name := de.Name()
	path := filepath.Join(dir, name)
	item := Item{
		Name:        name,
		Path:        path,
		IsDirectory: de.IsDir(),
		IsFile:      !de.IsDir(),
	}

	if de.Type()&fs.ModeSymlink != 0 {
		item.IsSymlink = true
		item.IsFile = false
		if target, err := filepath.EvalSymlinks(path); err != nil {
			item.IsBrokenSymlink = true
		} else {
			item.SymlinkTarget = target
			if info, err := os.Stat(target); err == nil {
				item.IsDirectory = info.IsDir()
				item.IsFile = !info.IsDir()
			}
		}
	}

	decorate(&item)

	info, err := os.Stat(path)
	if err != nil {
		item.Size = 0
		item.Modified = time.Now()
		return item
	}
	item.Size = info.Size()
	item.Modified = info.ModTime()
	return item
}

// decorate marks platform-specific entry flavors: application bundles
// on macOS, shortcut files on Windows, desktop entries elsewhere.
func decorate(item *Item) {
	lower := strings.ToLower(item.Name)
	switch runtime.GOOS {
	case "darwin":
		item.IsApplication = item.IsDirectory && strings.HasSuffix(lower, ".app")
	case "windows":
		item.IsShortcut = !item.IsDirectory && strings.HasSuffix(lower, ".lnk")
	default:
		item.IsDesktopEntry = !item.IsDirectory && strings.HasSuffix(lower, ".desktop")
	}
}
