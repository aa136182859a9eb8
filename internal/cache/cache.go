// Package cache provides the short-lived snapshot cache used by the services.
package cache

import (
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto"
)

// Cache defines a generic cache interface
type Cache[T any] interface {
	// Get retrieves a value from the cache
	Get(key string) (T, bool)

	// Set stores a value in the cache
	Set(key string, data T)

	// Delete removes a key from the cache
	Delete(key string)
}

// Config sizes the cache. MaxItems bounds the number of entries since every
// entry costs 1.
type Config struct {
	MaxItems int64
	TTL      time.Duration
}

// Ristretto is a Cache backed by dgraph-io/ristretto. Entries expire after
// the configured TTL.
type Ristretto[T any] struct {
	c   *ristretto.Cache
	ttl time.Duration
}

// New creates a ristretto-backed cache.
func New[T any](cfg Config) (*Ristretto[T], error) {
	if cfg.MaxItems <= 0 {
		cfg.MaxItems = 10000
	}
	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: cfg.MaxItems * 10, // keys tracked for admission frequency
		MaxCost:     cfg.MaxItems,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cache: %w", err)
	}
	return &Ristretto[T]{c: c, ttl: cfg.TTL}, nil
}

func (r *Ristretto[T]) Get(key string) (T, bool) {
	var zero T
	v, ok := r.c.Get(key)
	if !ok {
		return zero, false
	}
	t, ok := v.(T)
	if !ok {
		return zero, false
	}
	return t, true
}

// Set stores data. Writes are buffered by ristretto and may be dropped by
// its admission policy, so a Set is a hint rather than a guarantee.
func (r *Ristretto[T]) Set(key string, data T) {
	if r.ttl > 0 {
		r.c.SetWithTTL(key, data, 1, r.ttl)
		return
	}
	r.c.Set(key, data, 1)
}

func (r *Ristretto[T]) Delete(key string) {
	r.c.Del(key)
}

// Wait blocks until buffered writes are applied.
func (r *Ristretto[T]) Wait() {
	r.c.Wait()
}

func (r *Ristretto[T]) Close() {
	r.c.Close()
}

// Noop never stores anything. Used when caching is disabled.
type Noop[T any] struct{}

func (Noop[T]) Get(string) (T, bool) {
	var zero T
	return zero, false
}

func (Noop[T]) Set(string, T) {}

func (Noop[T]) Delete(string) {}
