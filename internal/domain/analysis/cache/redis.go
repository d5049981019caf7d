package cache

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"

	"leafai-server-go/internal/platform/errors"
	"leafai-server-go/internal/platform/logging"
)

const defaultRedisPrefix = "analysis:result:"

// redisStore shares cached results across replicas. TTL is enforced by
// redis itself; hit and miss counters are local to the process.
type redisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	logger *logging.Logger

	hits   atomic.Int64
	misses atomic.Int64
}

func newRedisStore(cfg Config, logger *logging.Logger) (*redisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Username: cfg.Redis.Username,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, errors.Wrap(errors.KindCache, "cache.newRedisStore",
			"redis unreachable", err)
	}

	prefix := cfg.Redis.Prefix
	if prefix == "" {
		prefix = defaultRedisPrefix
	}

	logger.InfoTag("CACHE", "redis store connected: addr=%s db=%d", cfg.Redis.Addr, cfg.Redis.DB)
	return &redisStore{
		client: client,
		prefix: prefix,
		ttl:    cfg.TTL,
		logger: logger,
	}, nil
}

func (s *redisStore) Get(ctx context.Context, key string) (Entry, bool, error) {
	raw, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if err == redis.Nil {
		s.misses.Add(1)
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, errors.Wrap(errors.KindCache, "cache.Get", "redis get failed", err)
	}

	var entry Entry
	if err := sonic.Unmarshal(raw, &entry); err != nil {
		// A corrupt entry is treated as a miss; it will be overwritten.
		s.logger.WarnTag("CACHE", "dropping undecodable entry: key=%s err=%v", key, err)
		s.misses.Add(1)
		return Entry{}, false, nil
	}

	s.hits.Add(1)
	return entry, true, nil
}

func (s *redisStore) Set(ctx context.Context, key string, entry Entry) error {
	raw, err := sonic.Marshal(entry)
	if err != nil {
		return errors.Wrap(errors.KindCache, "cache.Set", "encode entry", err)
	}
	if err := s.client.Set(ctx, s.prefix+key, raw, s.ttl).Err(); err != nil {
		return errors.Wrap(errors.KindCache, "cache.Set", "redis set failed", err)
	}
	return nil
}

func (s *redisStore) Stats(ctx context.Context) (Stats, error) {
	var count int64
	iter := s.client.Scan(ctx, 0, s.prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		count++
	}
	if err := iter.Err(); err != nil {
		return Stats{}, errors.Wrap(errors.KindCache, "cache.Stats", "redis scan failed", err)
	}

	return Stats{
		Driver:  "redis",
		Entries: count,
		Hits:    s.hits.Load(),
		Misses:  s.misses.Load(),
	}, nil
}

func (s *redisStore) Close() error {
	return s.client.Close()
}
