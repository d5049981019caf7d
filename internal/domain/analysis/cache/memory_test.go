package cache

import (
	"context"
	"testing"
	"time"

	platformtest "leafai-server-go/internal/platform/testing"
)

func TestKeyDeterministic(t *testing.T) {
	data := []byte("image bytes")
	a := Key(data, "prompt")
	b := Key(data, "prompt")
	if a != b {
		t.Error("same inputs produced different keys")
	}
	if Key(data, "other prompt") == a {
		t.Error("prompt change did not change the key")
	}
	if Key([]byte("other image"), "prompt") == a {
		t.Error("image change did not change the key")
	}
	if len(a) != 64 {
		t.Errorf("key length = %d, want 64 hex chars", len(a))
	}
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	logger := platformtest.SetupTestLogger(t)
	store, err := New(Config{Driver: "memory", TTL: time.Hour}, logger)
	platformtest.AssertNoError(t, err)
	defer store.Close()

	ctx := context.Background()
	key := Key([]byte("img"), "p")

	if _, found, err := store.Get(ctx, key); err != nil || found {
		t.Fatalf("fresh store: found=%v err=%v", found, err)
	}

	entry := Entry{Text: "Likely blight", Model: "sonar", Created: time.Now().Unix()}
	platformtest.AssertNoError(t, store.Set(ctx, key, entry))

	got, found, err := store.Get(ctx, key)
	platformtest.AssertNoError(t, err)
	if !found {
		t.Fatal("entry not found after Set")
	}
	platformtest.AssertEqual(t, entry.Text, got.Text)
	platformtest.AssertEqual(t, entry.Model, got.Model)
}

func TestMemoryStoreExpiry(t *testing.T) {
	logger := platformtest.SetupTestLogger(t)
	store, err := New(Config{Driver: "memory", TTL: 10 * time.Millisecond}, logger)
	platformtest.AssertNoError(t, err)
	defer store.Close()

	ctx := context.Background()
	key := Key([]byte("img"), "p")
	platformtest.AssertNoError(t, store.Set(ctx, key, Entry{Text: "x"}))

	time.Sleep(30 * time.Millisecond)

	if _, found, err := store.Get(ctx, key); err != nil || found {
		t.Errorf("expired entry still served: found=%v err=%v", found, err)
	}
}

func TestMemoryStoreStats(t *testing.T) {
	logger := platformtest.SetupTestLogger(t)
	store, err := New(Config{Driver: "memory", TTL: time.Hour}, logger)
	platformtest.AssertNoError(t, err)
	defer store.Close()

	ctx := context.Background()
	key := Key([]byte("img"), "p")

	store.Get(ctx, key) // miss
	store.Set(ctx, key, Entry{Text: "x"})
	store.Get(ctx, key) // hit

	stats, err := store.Stats(ctx)
	platformtest.AssertNoError(t, err)
	platformtest.AssertEqual(t, "memory", stats.Driver)
	platformtest.AssertEqual(t, int64(1), stats.Entries)
	platformtest.AssertEqual(t, int64(1), stats.Hits)
	platformtest.AssertEqual(t, int64(1), stats.Misses)
}

func TestMemoryStoreSweep(t *testing.T) {
	logger := platformtest.SetupTestLogger(t)
	s := newMemoryStore(Config{TTL: time.Millisecond}, logger)
	defer s.Close()

	ctx := context.Background()
	s.Set(ctx, "a", Entry{Text: "x"})
	s.Set(ctx, "b", Entry{Text: "y"})

	s.sweep(time.Now().Add(time.Second))

	stats, _ := s.Stats(ctx)
	if stats.Entries != 0 {
		t.Errorf("entries after sweep = %d, want 0", stats.Entries)
	}
}

func TestNewRejectsUnknownDriver(t *testing.T) {
	logger := platformtest.SetupTestLogger(t)
	if _, err := New(Config{Driver: "memcached"}, logger); err == nil {
		t.Error("unknown driver accepted")
	}
}

func TestNewDefaultsToMemory(t *testing.T) {
	logger := platformtest.SetupTestLogger(t)
	store, err := New(Config{}, logger)
	platformtest.AssertNoError(t, err)
	defer store.Close()

	stats, err := store.Stats(context.Background())
	platformtest.AssertNoError(t, err)
	platformtest.AssertEqual(t, "memory", stats.Driver)
}
