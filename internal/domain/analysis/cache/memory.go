package cache

import (
	"context"
	"sync"
	"time"

	"leafai-server-go/internal/platform/logging"
)

const defaultGCInterval = 5 * time.Minute

type memoryEntry struct {
	entry     Entry
	expiresAt time.Time
}

func (m memoryEntry) expired(now time.Time) bool {
	return !m.expiresAt.IsZero() && now.After(m.expiresAt)
}

// memoryStore is the in-process driver. A background sweep evicts expired
// entries so an idle server does not hold stale results forever.
type memoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	ttl     time.Duration
	logger  *logging.Logger

	hits   int64
	misses int64

	stop     chan struct{}
	stopOnce sync.Once
}

func newMemoryStore(cfg Config, logger *logging.Logger) *memoryStore {
	interval := cfg.Memory.GCInterval
	if interval <= 0 {
		interval = defaultGCInterval
	}

	s := &memoryStore{
		entries: make(map[string]memoryEntry),
		ttl:     cfg.TTL,
		logger:  logger,
		stop:    make(chan struct{}),
	}
	go s.gcLoop(interval)
	return s
}

func (s *memoryStore) Get(_ context.Context, key string) (Entry, bool, error) {
	s.mu.RLock()
	item, ok := s.entries[key]
	s.mu.RUnlock()

	if !ok || item.expired(time.Now()) {
		s.mu.Lock()
		if item, ok = s.entries[key]; ok && item.expired(time.Now()) {
			delete(s.entries, key)
			ok = false
		}
		s.misses++
		s.mu.Unlock()
		return Entry{}, false, nil
	}

	s.mu.Lock()
	s.hits++
	s.mu.Unlock()
	return item.entry, true, nil
}

func (s *memoryStore) Set(_ context.Context, key string, entry Entry) error {
	var expiresAt time.Time
	if s.ttl > 0 {
		expiresAt = time.Now().Add(s.ttl)
	}

	s.mu.Lock()
	s.entries[key] = memoryEntry{entry: entry, expiresAt: expiresAt}
	s.mu.Unlock()
	return nil
}

func (s *memoryStore) Stats(_ context.Context) (Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Stats{
		Driver:  "memory",
		Entries: int64(len(s.entries)),
		Hits:    s.hits,
		Misses:  s.misses,
	}, nil
}

func (s *memoryStore) Close() error {
	s.stopOnce.Do(func() {
		close(s.stop)
	})
	return nil
}

func (s *memoryStore) gcLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case now := <-ticker.C:
			s.sweep(now)
		}
	}
}

func (s *memoryStore) sweep(now time.Time) {
	s.mu.Lock()
	removed := 0
	for key, item := range s.entries {
		if item.expired(now) {
			delete(s.entries, key)
			removed++
		}
	}
	s.mu.Unlock()

	if removed > 0 {
		s.logger.DebugTag("CACHE", "swept %d expired entries", removed)
	}
}
