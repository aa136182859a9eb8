package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"expense-tracker/internal/cache"
	"expense-tracker/internal/log"
	"expense-tracker/internal/metrics"
	"expense-tracker/internal/storage"
)

// SnapshotEntry is a cached aggregate tagged with the history generation it
// was computed from.
type SnapshotEntry struct {
	Generation uint64
	Snapshot   metrics.Snapshot
}

// MetricsService aggregates a user's full history on demand.
//
// Snapshots are cached per user. Every write bumps the user's generation,
// so an entry computed before the write is never served after it, even if
// the cache has not yet applied the delete.
type MetricsService struct {
	store storage.TransactionStore
	cache cache.Cache[SnapshotEntry]
	loc   *time.Location
	clock Clock

	mu   sync.Mutex
	gens map[string]uint64
}

func NewMetricsService(store storage.TransactionStore, c cache.Cache[SnapshotEntry], loc *time.Location, clock Clock) *MetricsService {
	if c == nil {
		c = cache.Noop[SnapshotEntry]{}
	}
	if loc == nil {
		loc = time.UTC
	}
	return &MetricsService{
		store: store,
		cache: c,
		loc:   loc,
		clock: clock,
		gens:  map[string]uint64{},
	}
}

// Snapshot returns the user's aggregate as of now.
func (s *MetricsService) Snapshot(ctx context.Context, username string) (metrics.Snapshot, error) {
	gen := s.generation(username)
	if e, ok := s.cache.Get(username); ok && e.Generation == gen {
		log.FromContext(ctx).DebugContext(ctx, "Metrics served from cache",
			log.FieldUsername, username,
			log.FieldCacheHit, true)
		return e.Snapshot, nil
	}

	txs, err := s.store.ListTransactions(ctx, username)
	if err != nil {
		return metrics.Snapshot{}, fmt.Errorf("load transactions: %w", err)
	}

	start := time.Now()
	snap, err := metrics.Aggregate(txs, s.clock.now().In(s.loc))
	if err != nil {
		return metrics.Snapshot{}, fmt.Errorf("aggregate: %w", err)
	}
	log.FromContext(ctx).DebugContext(ctx, "Metrics aggregated",
		log.FieldUsername, username,
		log.FieldCacheHit, false,
		log.FieldTransaction, len(txs),
		log.FieldDuration, time.Since(start).Milliseconds())

	s.cache.Set(username, SnapshotEntry{Generation: gen, Snapshot: snap})
	return snap, nil
}

// Invalidate discards any cached snapshot for username.
func (s *MetricsService) Invalidate(username string) {
	s.mu.Lock()
	s.gens[username]++
	s.mu.Unlock()
	s.cache.Delete(username)
}

// Location is the zone month buckets are computed in.
func (s *MetricsService) Location() *time.Location {
	return s.loc
}

func (s *MetricsService) generation(username string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gens[username]
}
