package fsutil

import (
	"fmt"
	"runtime"
	"testing"
	"time"
)

func TestHiddenCache_PutGet(t *testing.T) {
	c := NewHiddenCache()
	c.Put("/a", Attrs{Hidden: true})

	got, ok := c.Get("/a")
	if !ok || !got.Hidden {
		t.Errorf("Get = %+v, %v", got, ok)
	}
	if _, ok := c.Get("/missing"); ok {
		t.Error("Get hit for a path never stored")
	}
}

func TestHiddenCache_TTL(t *testing.T) {
	c := NewHiddenCache()
	now := time.Now()
	c.now = func() time.Time { return now }

	c.Put("/a", Attrs{Hidden: true})
	now = now.Add(hiddenCacheTTL + time.Second)

	if _, ok := c.Get("/a"); ok {
		t.Error("expired entry served")
	}
	// Expired entries are deleted on access, not merely ignored.
	if c.Len() != 0 {
		t.Errorf("expired entry still cached: len = %d", c.Len())
	}
}

func TestHiddenCache_LRUEviction(t *testing.T) {
	c := NewHiddenCache()
	c.cap = 3

	c.Put("/a", Attrs{})
	c.Put("/b", Attrs{})
	c.Put("/c", Attrs{})

	// Touch /a so /b becomes the least recently used.
	c.Get("/a")
	c.Put("/d", Attrs{})

	if _, ok := c.Get("/b"); ok {
		t.Error("least recently used entry survived eviction")
	}
	for _, p := range []string{"/a", "/c", "/d"} {
		if _, ok := c.Get(p); !ok {
			t.Errorf("entry %s evicted unexpectedly", p)
		}
	}
}

func TestHiddenCache_ReinsertMovesToEnd(t *testing.T) {
	c := NewHiddenCache()
	c.cap = 2

	c.Put("/a", Attrs{})
	c.Put("/b", Attrs{})
	c.Put("/a", Attrs{Hidden: true}) // re-insert moves /a to the end
	c.Put("/c", Attrs{})

	if _, ok := c.Get("/b"); ok {
		t.Error("/b should have been evicted")
	}
	if got, ok := c.Get("/a"); !ok || !got.Hidden {
		t.Error("re-inserted entry lost or stale")
	}
}

func TestHiddenCache_CapacityBound(t *testing.T) {
	c := NewHiddenCache()
	c.cap = 10
	for i := 0; i < 100; i++ {
		c.Put(fmt.Sprintf("/p%d", i), Attrs{})
	}
	if c.Len() != 10 {
		t.Errorf("cache grew past capacity: %d", c.Len())
	}
}

func TestResolver_SharedCache(t *testing.T) {
	cache := NewHiddenCache()
	cache.Put("/x/marked", Attrs{SystemProtected: true})

	r := NewResolverWithCache(cache, nil)
	if !r.Resolve("/x/marked").SystemProtected {
		t.Error("resolver ignored the shared cache entry")
	}
	if attrs := r.ResolveBatch([]string{"/x/marked"}); !attrs[0].SystemProtected {
		t.Error("batch resolution ignored the shared cache entry")
	}
}

func TestResolver_DotPrefix(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("dot-prefix heuristic is not authoritative on windows")
	}
	r := NewResolver(nil)
	if !r.Resolve("/home/user/.config").Hidden {
		t.Error("dot-prefixed path not hidden")
	}
	if r.Resolve("/home/user/docs").Hidden {
		t.Error("plain path reported hidden")
	}
}

func TestResolver_BatchOrder(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("dot-prefix heuristic is not authoritative on windows")
	}
	r := NewResolver(nil)
	paths := []string{"/x/visible", "/x/.hidden", "/x/also-visible"}
	attrs := r.ResolveBatch(paths)
	if len(attrs) != len(paths) {
		t.Fatalf("got %d attrs for %d paths", len(attrs), len(paths))
	}
	if attrs[0].Hidden || !attrs[1].Hidden || attrs[2].Hidden {
		t.Errorf("batch order broken: %+v", attrs)
	}

	// Second resolve comes from the cache and must agree.
	again := r.ResolveBatch(paths)
	for i := range attrs {
		if attrs[i] != again[i] {
			t.Errorf("cached attrs differ at %d: %+v vs %+v", i, attrs[i], again[i])
		}
	}
}
