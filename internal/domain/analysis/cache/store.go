package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"leafai-server-go/internal/platform/errors"
	"leafai-server-go/internal/platform/logging"
)

// Entry is a cached analysis result.
type Entry struct {
	Text    string `json:"text"`
	Model   string `json:"model"`
	Created int64  `json:"created"`
}

// Stats reports store usage counters.
type Stats struct {
	Driver  string
	Entries int64
	Hits    int64
	Misses  int64
}

// Store caches analysis results keyed by image content and prompt. A miss
// is reported as (zero entry, false, nil error); errors mean the store
// itself failed.
type Store interface {
	Get(ctx context.Context, key string) (Entry, bool, error)
	Set(ctx context.Context, key string, entry Entry) error
	Stats(ctx context.Context) (Stats, error)
	Close() error
}

// Config selects and tunes a store driver.
type Config struct {
	Driver string
	TTL    time.Duration
	Redis  RedisConfig
	Memory MemoryConfig
}

type RedisConfig struct {
	Addr     string
	Username string
	Password string
	DB       int
	Prefix   string
}

type MemoryConfig struct {
	GCInterval time.Duration
}

// New builds a store for the configured driver.
func New(cfg Config, logger *logging.Logger) (Store, error) {
	if logger == nil {
		logger = logging.DefaultLogger
	}
	switch cfg.Driver {
	case "", "memory":
		return newMemoryStore(cfg, logger), nil
	case "redis":
		return newRedisStore(cfg, logger)
	default:
		return nil, errors.New(errors.KindCache, "cache.New",
			fmt.Sprintf("unknown cache driver %q", cfg.Driver))
	}
}

// Key derives the cache key for an upload and prompt. Identical image
// bytes with an identical prompt always map to the same key.
func Key(data []byte, prompt string) string {
	h := sha256.New()
	h.Write(data)
	h.Write([]byte{0})
	h.Write([]byte(prompt))
	return hex.EncodeToString(h.Sum(nil))
}
