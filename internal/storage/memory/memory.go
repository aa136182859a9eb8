// Package memory is an in-process storage backend for tests and local runs.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"expense-tracker/internal/core"
	"expense-tracker/internal/storage"
)

type Store struct {
	mu      sync.Mutex
	txs     []core.Transaction
	limits  map[string]core.LimitsConfig
	summary map[string]time.Time
}

var _ storage.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		limits:  map[string]core.LimitsConfig{},
		summary: map[string]time.Time{},
	}
}

// CreateTransaction stores a copy of tx. IDs must be unique.
func (s *Store) CreateTransaction(_ context.Context, tx core.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.indexOf(tx.Username, tx.ID) >= 0 {
		return fmt.Errorf("transaction %s: %w", tx.ID, storage.ErrAlreadyExists)
	}
	s.txs = append(s.txs, tx)
	return nil
}

func (s *Store) GetTransaction(_ context.Context, username, id string) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(username, id)
	if i < 0 {
		return core.Transaction{}, fmt.Errorf("transaction %s: %w", id, storage.ErrNotFound)
	}
	return s.txs[i], nil
}

// ListTransactions returns the user's transactions in insertion order.
func (s *Store) ListTransactions(_ context.Context, username string) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []core.Transaction{}
	for _, tx := range s.txs {
		if tx.Username == username {
			out = append(out, tx)
		}
	}
	return out, nil
}

func (s *Store) UpdateTransaction(_ context.Context, tx core.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(tx.Username, tx.ID)
	if i < 0 {
		return fmt.Errorf("transaction %s: %w", tx.ID, storage.ErrNotFound)
	}
	s.txs[i] = tx
	return nil
}

func (s *Store) DeleteTransaction(_ context.Context, username, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(username, id)
	if i < 0 {
		return fmt.Errorf("transaction %s: %w", id, storage.ErrNotFound)
	}
	s.txs = append(s.txs[:i], s.txs[i+1:]...)
	return nil
}

func (s *Store) ListUsernames(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := map[string]struct{}{}
	var out []string
	for _, tx := range s.txs {
		if _, ok := seen[tx.Username]; ok {
			continue
		}
		seen[tx.Username] = struct{}{}
		out = append(out, tx.Username)
	}
	sort.Strings(out)
	return out, nil
}

func (s *Store) GetLimits(_ context.Context, username string) (core.LimitsConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cfg, ok := s.limits[username]
	if !ok {
		return core.LimitsConfig{}, fmt.Errorf("limits for %s: %w", username, storage.ErrNotFound)
	}
	return copyConfig(cfg), nil
}

func (s *Store) CreateLimits(_ context.Context, cfg core.LimitsConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.limits[cfg.Username]; ok {
		return fmt.Errorf("limits for %s: %w", cfg.Username, storage.ErrAlreadyExists)
	}
	s.limits[cfg.Username] = copyConfig(cfg)
	return nil
}

func (s *Store) UpdateLimits(_ context.Context, cfg core.LimitsConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.limits[cfg.Username]; !ok {
		return fmt.Errorf("limits for %s: %w", cfg.Username, storage.ErrNotFound)
	}
	s.limits[cfg.Username] = copyConfig(cfg)
	return nil
}

func (s *Store) ClaimSummarySlot(_ context.Context, username string, now time.Time, window time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if last, ok := s.summary[username]; ok && now.Sub(last) < window {
		return false, nil
	}
	s.summary[username] = now
	return true, nil
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }

func (s *Store) indexOf(username, id string) int {
	for i, tx := range s.txs {
		if tx.ID == id && tx.Username == username {
			return i
		}
	}
	return -1
}

func copyConfig(cfg core.LimitsConfig) core.LimitsConfig {
	l := make(core.Limits, len(cfg.Limits))
	for g, v := range cfg.Limits {
		l[g] = v
	}
	cfg.Limits = l
	return cfg
}
