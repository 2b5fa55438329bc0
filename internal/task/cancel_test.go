package task

import (
	"testing"
	"time"
)

func TestRegistry_NeverCancelled(t *testing.T) {
	r := NewRegistry()
	if r.IsCancelled("op-1") {
		t.Error("IsCancelled returned true for an id never cancelled")
	}
	if r.IsCancelled("") {
		t.Error("IsCancelled returned true for the empty id")
	}
	if err := r.Check("op-1"); err != nil {
		t.Errorf("Check: %v", err)
	}
}

func TestRegistry_Cancelled(t *testing.T) {
	r := NewRegistry()
	r.RequestCancel("op-1")

	if !r.IsCancelled("op-1") {
		t.Error("IsCancelled returned false after RequestCancel")
	}
	if err := r.Check("op-1"); err != ErrCancelled {
		t.Errorf("Check: got %v, want ErrCancelled", err)
	}
	if r.IsCancelled("op-2") {
		t.Error("cancellation leaked to another id")
	}
}

func TestRegistry_TTLExpiry(t *testing.T) {
	r := NewRegistry()
	now := time.Now()
	r.now = func() time.Time { return now }
	r.RequestCancel("op-1")

	// Just inside the TTL.
	now = now.Add(cancelTTL - time.Second)
	if !r.IsCancelled("op-1") {
		t.Fatal("entry expired before the TTL")
	}

	// Past the TTL: reads false and removes the entry.
	now = now.Add(2 * time.Second)
	if r.IsCancelled("op-1") {
		t.Error("entry survived past the TTL")
	}
	if r.Len() != 0 {
		t.Errorf("expired entry not removed on read: %d left", r.Len())
	}
}

func TestRegistry_Prune(t *testing.T) {
	r := NewRegistry()
	now := time.Now()
	r.now = func() time.Time { return now }

	r.RequestCancel("old")
	now = now.Add(cancelTTL + time.Minute)
	r.RequestCancel("fresh")

	r.Prune()

	if r.Len() != 1 {
		t.Fatalf("Prune left %d entries, want 1", r.Len())
	}
	if !r.IsCancelled("fresh") {
		t.Error("Prune removed a live entry")
	}
	if r.IsCancelled("old") {
		t.Error("Prune kept an expired entry")
	}
}

func TestRegistry_EmptyIDNoop(t *testing.T) {
	r := NewRegistry()
	r.RequestCancel("")
	if r.Len() != 0 {
		t.Error("RequestCancel stored an entry for the empty id")
	}
}
