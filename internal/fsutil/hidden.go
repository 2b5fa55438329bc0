package fsutil

import (
	"container/list"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	hiddenCacheCap = 5000
	hiddenCacheTTL = 5 * time.Minute

	// attrBatchSize bounds the concurrent platform lookups issued by
	// ResolveBatch.
	attrBatchSize = 50
)

// Attrs is the hidden/system-protected classification of one path.
type Attrs struct {
	Hidden          bool
	SystemProtected bool
}

type hiddenEntry struct {
	path  string
	attrs Attrs
	at    time.Time
}

// HiddenCache is a capacity-bounded LRU with a per-entry TTL. Expired
// entries are deleted on access, not merely ignored.
type HiddenCache struct {
	mu    sync.Mutex
	order *list.List // front = least recently used
	items map[string]*list.Element
	cap   int
	ttl   time.Duration
	now   func() time.Time
}

// NewHiddenCache creates a cache with the default capacity and TTL.
func NewHiddenCache() *HiddenCache {
	return &HiddenCache{
		order: list.New(),
		items: make(map[string]*list.Element),
		cap:   hiddenCacheCap,
		ttl:   hiddenCacheTTL,
		now:   time.Now,
	}
}

// Get returns the cached attrs for path. A hit moves the entry to the
// most-recently-used position; an expired entry is removed.
func (c *HiddenCache) Get(path string) (Attrs, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[path]
	if !ok {
		return Attrs{}, false
	}
	entry := el.Value.(*hiddenEntry)
	if c.now().Sub(entry.at) > c.ttl {
		c.order.Remove(el)
		delete(c.items, path)
		return Attrs{}, false
	}
	c.order.MoveToBack(el)
	return entry.attrs, true
}

// Put stores attrs for path, evicting the least recently used entry
// when over capacity. Re-inserted entries move to the end.
func (c *HiddenCache) Put(path string, attrs Attrs) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[path]; ok {
		entry := el.Value.(*hiddenEntry)
		entry.attrs = attrs
		entry.at = c.now()
		c.order.MoveToBack(el)
		return
	}

	el := c.order.PushBack(&hiddenEntry{path: path, attrs: attrs, at: c.now()})
	c.items[path] = el

	for c.order.Len() > c.cap {
		oldest := c.order.Front()
		c.order.Remove(oldest)
		delete(c.items, oldest.Value.(*hiddenEntry).path)
	}
}

// Len returns the number of cached entries.
func (c *HiddenCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Resolver answers hidden/system-protected queries through the cache.
type Resolver struct {
	cache *HiddenCache
	log   *zap.Logger
}

// NewResolver creates a resolver with its own cache.
func NewResolver(log *zap.Logger) *Resolver {
	return NewResolverWithCache(NewHiddenCache(), log)
}

// NewResolverWithCache creates a resolver over an existing cache, for
// callers sharing one attribute cache across services.
func NewResolverWithCache(cache *HiddenCache, log *zap.Logger) *Resolver {
	if log == nil {
		log = zap.NewNop()
	}
	return &Resolver{cache: cache, log: log}
}

// Resolve classifies one path.
func (r *Resolver) Resolve(path string) Attrs {
	if attrs, ok := r.cache.Get(path); ok {
		return attrs
	}
	attrs := platformAttrs(path)
	r.cache.Put(path, attrs)
	return attrs
}

// ResolveBatch classifies paths concurrently, in bounded sub-batches,
// and returns attrs in input order. Failed lookups degrade to the
// name-prefix heuristic inside platformAttrs, never to an error.
func (r *Resolver) ResolveBatch(paths []string) []Attrs {
	out := make([]Attrs, len(paths))

	// Indices that still need a platform lookup.
	var misses []int
	for i, p := range paths {
		if attrs, ok := r.cache.Get(p); ok {
			out[i] = attrs
		} else {
			misses = append(misses, i)
		}
	}

	for start := 0; start < len(misses); start += attrBatchSize {
		end := start + attrBatchSize
		if end > len(misses) {
			end = len(misses)
		}
		var wg sync.WaitGroup
		for _, i := range misses[start:end] {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				out[i] = platformAttrs(paths[i])
			}(i)
		}
		wg.Wait()
		for _, i := range misses[start:end] {
			r.cache.Put(paths[i], out[i])
		}
	}
	return out
}
