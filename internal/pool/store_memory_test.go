package pool

import (
	"context"
	"testing"
	"time"
)

func TestMemoryStore_CASAbsentKeyCommits(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	rec := LeaseRecord{HolderID: "worker-x", ExpiresAt: unixSeconds(time.Now().Add(time.Minute))}
	committed, current, err := store.CompareAndSwap(ctx, "ns/A", rec, "worker-x")

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !committed {
		t.Fatal("expected CAS on absent key to commit")
	}
	if current != nil {
		t.Fatalf("expected nil current on commit, got %+v", current)
	}
}

func TestMemoryStore_CASWrongHolderReturnsCurrent(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	first := LeaseRecord{HolderID: "worker-x", ExpiresAt: unixSeconds(time.Now().Add(time.Minute))}
	_, _, _ = store.CompareAndSwap(ctx, "ns/A", first, "worker-x")

	second := LeaseRecord{HolderID: "worker-y", ExpiresAt: unixSeconds(time.Now().Add(time.Minute))}
	committed, current, err := store.CompareAndSwap(ctx, "ns/A", second, "worker-y")

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if committed {
		t.Fatal("expected CAS against a different holder to fail")
	}
	if current == nil || current.HolderID != "worker-x" {
		t.Fatalf("expected current record for worker-x, got %+v", current)
	}
}

func TestMemoryStore_DeleteAbsentKeyIsNoop(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if err := store.Delete(ctx, "ns/never-written"); err != nil {
		t.Fatalf("unexpected error deleting absent key: %v", err)
	}

	got, err := store.Get(ctx, "ns/never-written")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil for absent key, got %+v", got)
	}
}
