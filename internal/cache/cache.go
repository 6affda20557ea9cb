package cache

import (
	"context"
	"time"

	"shoptrack/backend/internal/domain"
)

// SummaryCache holds the dashboard report summary between recomputations.
type SummaryCache interface {
	Get(ctx context.Context, key string) (*domain.ReportSummary, bool, error)
	Set(ctx context.Context, key string, value *domain.ReportSummary, ttl time.Duration) error
}

type NoopSummaryCache struct{}

func (NoopSummaryCache) Get(_ context.Context, _ string) (*domain.ReportSummary, bool, error) {
	return nil, false, nil
}

func (NoopSummaryCache) Set(_ context.Context, _ string, _ *domain.ReportSummary, _ time.Duration) error {
	return nil
}
