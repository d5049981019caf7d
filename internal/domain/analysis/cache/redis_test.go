package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	platformtest "leafai-server-go/internal/platform/testing"
)

func setupRedisStore(t *testing.T, ttl time.Duration) (Store, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	logger := platformtest.SetupTestLogger(t)
	store, err := New(Config{
		Driver: "redis",
		TTL:    ttl,
		Redis:  RedisConfig{Addr: mr.Addr()},
	}, logger)
	platformtest.AssertNoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store, mr
}

func TestRedisStoreRoundTrip(t *testing.T) {
	store, _ := setupRedisStore(t, time.Hour)
	ctx := context.Background()
	key := Key([]byte("img"), "p")

	if _, found, err := store.Get(ctx, key); err != nil || found {
		t.Fatalf("fresh store: found=%v err=%v", found, err)
	}

	entry := Entry{Text: "Rust disease", Model: "sonar-pro", Created: time.Now().Unix()}
	platformtest.AssertNoError(t, store.Set(ctx, key, entry))

	got, found, err := store.Get(ctx, key)
	platformtest.AssertNoError(t, err)
	if !found {
		t.Fatal("entry not found after Set")
	}
	platformtest.AssertEqual(t, entry.Text, got.Text)
	platformtest.AssertEqual(t, entry.Model, got.Model)
}

func TestRedisStoreExpiry(t *testing.T) {
	store, mr := setupRedisStore(t, time.Minute)
	ctx := context.Background()
	key := Key([]byte("img"), "p")
	platformtest.AssertNoError(t, store.Set(ctx, key, Entry{Text: "x"}))

	mr.FastForward(2 * time.Minute)

	if _, found, err := store.Get(ctx, key); err != nil || found {
		t.Errorf("expired entry still served: found=%v err=%v", found, err)
	}
}

func TestRedisStoreCorruptEntryIsAMiss(t *testing.T) {
	store, mr := setupRedisStore(t, time.Hour)
	ctx := context.Background()
	key := Key([]byte("img"), "p")

	mr.Set(defaultRedisPrefix+key, "not json")

	_, found, err := store.Get(ctx, key)
	platformtest.AssertNoError(t, err)
	if found {
		t.Error("corrupt entry reported as a hit")
	}
}

func TestRedisStoreStats(t *testing.T) {
	store, _ := setupRedisStore(t, time.Hour)
	ctx := context.Background()

	store.Get(ctx, "absent") // miss
	store.Set(ctx, "a", Entry{Text: "x"})
	store.Set(ctx, "b", Entry{Text: "y"})
	store.Get(ctx, "a") // hit

	stats, err := store.Stats(ctx)
	platformtest.AssertNoError(t, err)
	platformtest.AssertEqual(t, "redis", stats.Driver)
	platformtest.AssertEqual(t, int64(2), stats.Entries)
	platformtest.AssertEqual(t, int64(1), stats.Hits)
	platformtest.AssertEqual(t, int64(1), stats.Misses)
}

func TestNewRedisUnreachable(t *testing.T) {
	logger := platformtest.SetupTestLogger(t)
	_, err := New(Config{
		Driver: "redis",
		Redis:  RedisConfig{Addr: "127.0.0.1:1"},
	}, logger)
	platformtest.AssertError(t, err)
}
