package services

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"expense-tracker/internal/core"
	"expense-tracker/internal/log"
	"expense-tracker/internal/metrics"
	"expense-tracker/internal/storage"

	"github.com/shopspring/decimal"
)

// ExceededReport lists every (month, group) over its limit.
type ExceededReport struct {
	Exceeded    []core.ExceededLimit `json:"exceeded"`
	TotalExcess decimal.Decimal      `json:"totalExcess"`
}

// LimitsService manages per-user spending limits and compares them with
// the aggregated expenses.
type LimitsService struct {
	store   storage.LimitsStore
	metrics *MetricsService
	clock   Clock
}

func NewLimitsService(store storage.LimitsStore, metrics *MetricsService, clock Clock) *LimitsService {
	return &LimitsService{store: store, metrics: metrics, clock: clock}
}

// Get returns the user's limits, creating the all-zero defaults on first
// access. The returned map always holds every group.
func (s *LimitsService) Get(ctx context.Context, username string) (core.LimitsConfig, error) {
	cfg, err := s.store.GetLimits(ctx, username)
	if err == nil {
		cfg.Limits = cfg.Limits.Merge()
		return cfg, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return core.LimitsConfig{}, fmt.Errorf("get limits: %w", err)
	}

	cfg = core.LimitsConfig{
		Username:  username,
		Limits:    core.DefaultLimits(),
		UpdatedAt: s.clock.now(),
	}
	err = s.store.CreateLimits(ctx, cfg)
	switch {
	case err == nil:
		log.FromContext(ctx).InfoContext(ctx, "Initialized default limits", log.FieldUsername, username)
		return cfg, nil
	case errors.Is(err, storage.ErrAlreadyExists):
		// lost the race with a concurrent first access
		return s.Get(ctx, username)
	default:
		return core.LimitsConfig{}, fmt.Errorf("create limits: %w", err)
	}
}

// Update overlays limits on the stored record. Groups not present in
// limits keep their current value.
func (s *LimitsService) Update(ctx context.Context, username string, limits core.Limits) (core.LimitsConfig, error) {
	if err := limits.Validate(); err != nil {
		return core.LimitsConfig{}, fmt.Errorf("%w: %w", ErrValidation, err)
	}

	cfg, err := s.Get(ctx, username)
	if err != nil {
		return core.LimitsConfig{}, err
	}
	for g, v := range limits {
		cfg.Limits[g] = v
	}
	cfg.UpdatedAt = s.clock.now()

	if err := s.store.UpdateLimits(ctx, cfg); err != nil {
		return core.LimitsConfig{}, fmt.Errorf("update limits: %w", err)
	}
	groups := make([]string, 0, len(limits))
	for g := range limits {
		groups = append(groups, string(g))
	}
	slices.Sort(groups)
	log.FromContext(ctx).InfoContext(ctx, "Limits updated", log.FieldUsername, username, log.FieldGroup, groups)
	return cfg, nil
}

// Exceeded compares the user's expenses per month and group with the
// current limits.
func (s *LimitsService) Exceeded(ctx context.Context, username string) (ExceededReport, error) {
	snap, err := s.metrics.Snapshot(ctx, username)
	if err != nil {
		return ExceededReport{}, err
	}
	return s.report(ctx, username, snap)
}

func (s *LimitsService) report(ctx context.Context, username string, snap metrics.Snapshot) (ExceededReport, error) {
	cfg, err := s.Get(ctx, username)
	if err != nil {
		return ExceededReport{}, err
	}
	exceeded := metrics.CompareToLimits(snap.ChartData.Expenses, cfg.Limits)
	return ExceededReport{
		Exceeded:    exceeded,
		TotalExcess: metrics.TotalExcess(exceeded),
	}, nil
}
