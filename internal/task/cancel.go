package task

import (
	"errors"
	"sync"
	"time"
)

// ErrCancelled is returned by any task aborted through the registry.
// It is distinct from I/O errors so callers can surface a quiet
// "operation cancelled" state instead of a failure.
var ErrCancelled = errors.New("operation cancelled")

// IsCancelledErr reports whether err is, or wraps, ErrCancelled.
func IsCancelledErr(err error) bool {
	return errors.Is(err, ErrCancelled)
}

// cancelTTL bounds how long a cancellation request stays live. An id
// nobody polls would otherwise leak in the table forever.
const cancelTTL = 10 * time.Minute

// Registry tracks cancellation requests by operation id. Long-running
// tasks poll it cooperatively, at least once per directory visited and
// once per batch of items.
type Registry struct {
	mu      sync.Mutex
	entries map[string]time.Time
	now     func() time.Time
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[string]time.Time),
		now:     time.Now,
	}
}

// RequestCancel records a cancellation request for the given operation.
func (r *Registry) RequestCancel(id string) {
	if id == "" {
		return
	}
	r.mu.Lock()
	r.entries[id] = r.now()
	r.mu.Unlock()
}

// IsCancelled reports whether the operation has a live cancellation
// request. Expired entries are deleted on read.
func (r *Registry) IsCancelled(id string) bool {
	if id == "" {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	at, ok := r.entries[id]
	if !ok {
		return false
	}
	if r.now().Sub(at) > cancelTTL {
		delete(r.entries, id)
		return false
	}
	return true
}

// Check returns ErrCancelled when the operation has been cancelled.
// Every task polls through this helper.
func (r *Registry) Check(id string) error {
	if r.IsCancelled(id) {
		return ErrCancelled
	}
	return nil
}

// Prune removes all entries older than the TTL. It runs on a timer
// independent of any operation so abandoned ids do not accumulate.
func (r *Registry) Prune() {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	for id, at := range r.entries {
		if now.Sub(at) > cancelTTL {
			delete(r.entries, id)
		}
	}
}

// StartPruner runs Prune on the given interval until stop is closed.
func (r *Registry) StartPruner(interval time.Duration, stop <-chan struct{}) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				r.Prune()
			case <-stop:
				return
			}
		}
	}()
}

// Len returns the number of live entries, expired or not.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
