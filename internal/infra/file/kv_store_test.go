package file

import (
	"context"
	"testing"
)

func TestKVStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, err := NewKVStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	_, ok, err := store.Get(ctx, "leaderboard:cache")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if ok {
		t.Fatalf("expected missing key")
	}

	if err := store.Set(ctx, "leaderboard:cache", `[{"id":"vk_1"}]`); err != nil {
		t.Fatalf("set: %v", err)
	}
	value, ok, err := store.Get(ctx, "leaderboard:cache")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !ok || value != `[{"id":"vk_1"}]` {
		t.Fatalf("expected stored value, got ok=%v value=%q", ok, value)
	}
}

func TestKVStoreOverwrite(t *testing.T) {
	ctx := context.Background()
	store, err := NewKVStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	if err := store.Set(ctx, "stats:vk_1", "old"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := store.Set(ctx, "stats:vk_1", "new"); err != nil {
		t.Fatalf("set: %v", err)
	}
	value, _, err := store.Get(ctx, "stats:vk_1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if value != "new" {
		t.Fatalf("expected overwritten value, got %q", value)
	}
}
