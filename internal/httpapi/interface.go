package httpapi

import (
	"context"
	"time"

	"github.com/godilite/ata-server/internal/repository/models"
	"github.com/godilite/ata-server/internal/service"
)

// Cacher defines the interface for cache operations.
type Cacher interface {
	Close() error
	Get(ctx context.Context, key string, dest any) error
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

// EvaluationService is the evaluation lifecycle surface the handlers need.
type EvaluationService interface {
	Create(ctx context.Context, in service.EvaluationInput) (models.Evaluation, error)
	Update(ctx context.Context, evaluationID string, in service.EvaluationInput) (models.Evaluation, error)
	Delete(ctx context.Context, evaluationID string) error
	Get(ctx context.Context, evaluationID string) (models.Evaluation, error)
	ListSummaries(ctx context.Context) ([]models.SummaryRow, error)
}

// AnalyticsService is the analytics/reporting surface the handlers need.
type AnalyticsService interface {
	AuditorIntelligence(ctx context.Context) ([]service.AuditorMetrics, error)
	RiskFlags(ctx context.Context) ([]service.RiskFlag, error)
	HealthIndexes(ctx context.Context) ([]service.AuditorHealth, error)
	Dashboard(ctx context.Context) (service.Dashboard, error)
	CoachingSummary(ctx context.Context, evaluationID string) (string, error)
}
