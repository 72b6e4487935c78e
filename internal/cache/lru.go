package cache

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

type lruEntry struct {
	value     []byte
	expiresAt time.Time
}

// LRUProvider implements Provider in process with a bounded LRU and per-entry TTL.
type LRUProvider struct {
	mu     sync.Mutex
	lru    *lru.Cache[string, lruEntry]
	now    func() time.Time
	hits   uint64
	misses uint64
}

// LRUStats reports lookup counters.
type LRUStats struct {
	Items  int
	Hits   uint64
	Misses uint64
}

// NewLRUProvider creates a cache holding at most size entries.
func NewLRUProvider(size int) (*LRUProvider, error) {
	if size <= 0 {
		return nil, fmt.Errorf("cache size must be positive, got %d", size)
	}
	c, err := lru.New[string, lruEntry](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create LRU cache: %w", err)
	}
	return &LRUProvider{lru: c, now: time.Now}, nil
}

// Get returns a copy of the stored bytes, or ErrCacheMiss when absent or expired.
func (p *LRUProvider) Get(_ context.Context, key string) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	entry, ok := p.lru.Get(key)
	if ok && p.expired(entry) {
		p.lru.Remove(key)
		ok = false
	}
	if !ok {
		atomic.AddUint64(&p.misses, 1)
		return nil, ErrCacheMiss
	}
	atomic.AddUint64(&p.hits, 1)
	return append([]byte(nil), entry.value...), nil
}

// Set stores value. A non-positive ttl keeps the entry until evicted.
func (p *LRUProvider) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lru.Add(key, p.entry(value, ttl))
	return nil
}

// Del removes key.
func (p *LRUProvider) Del(_ context.Context, key string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lru.Remove(key)
	return nil
}

// Close purges all entries.
func (p *LRUProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lru.Purge()
	return nil
}

// Stats returns a snapshot of the cache counters.
func (p *LRUProvider) Stats() LRUStats {
	return LRUStats{
		Items:  p.lru.Len(),
		Hits:   atomic.LoadUint64(&p.hits),
		Misses: atomic.LoadUint64(&p.misses),
	}
}

func (p *LRUProvider) entry(value []byte, ttl time.Duration) lruEntry {
	e := lruEntry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		e.expiresAt = p.now().Add(ttl)
	}
	return e
}

func (p *LRUProvider) expired(e lruEntry) bool {
	return !e.expiresAt.IsZero() && p.now().After(e.expiresAt)
}
