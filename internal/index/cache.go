package index

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/edsrzf/mmap-go"
)

// mmapReadThreshold is the document size above which Read maps the
// file instead of buffering it through the heap twice.
const mmapReadThreshold = 4 << 20

// Cache is a single-slot read cache keyed by (path, mtime). One active
// index is assumed per process, so it is not an LRU.
type Cache struct {
	mu      sync.Mutex
	path    string
	mtimeMS int64
	doc     *Document
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{}
}

// Read returns the parsed document for path, re-reading only when the
// file's modification time changed. A missing file clears the cache
// and returns emptyErr; unparseable JSON clears the cache and returns
// ErrCorrupt; other stat/read errors propagate.
func (c *Cache) Read(path string, emptyErr error) (*Document, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		c.Reset()
		return nil, emptyErr
	}
	if err != nil {
		return nil, fmt.Errorf("stat index: %w", err)
	}
	mtime := info.ModTime().UnixMilli()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.doc != nil && c.path == path && c.mtimeMS == mtime {
		return c.doc, nil
	}

	data, err := readFileMaybeMapped(path, info.Size())
	if err != nil {
		return nil, fmt.Errorf("read index: %w", err)
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		c.path, c.mtimeMS, c.doc = "", 0, nil
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	c.path, c.mtimeMS, c.doc = path, mtime, &doc
	return &doc, nil
}

// Reset invalidates the cached parse, used after an external rebuild.
func (c *Cache) Reset() {
	c.mu.Lock()
	c.path, c.mtimeMS, c.doc = "", 0, nil
	c.mu.Unlock()
}

func readFileMaybeMapped(path string, size int64) ([]byte, error) {
	if size < mmapReadThreshold {
		return os.ReadFile(path)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		return os.ReadFile(path)
	}
	defer m.Unmap()
	data := make([]byte, len(m))
	copy(data, m)
	return data, nil
}
