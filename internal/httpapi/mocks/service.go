package mocks

import (
	"context"
	"errors"

	"github.com/godilite/ata-server/internal/repository/models"
	"github.com/godilite/ata-server/internal/service"
)

// MockEvaluationService is a func-field mock of the handlers' evaluation
// surface.
type MockEvaluationService struct {
	CreateFunc        func(ctx context.Context, in service.EvaluationInput) (models.Evaluation, error)
	UpdateFunc        func(ctx context.Context, evaluationID string, in service.EvaluationInput) (models.Evaluation, error)
	DeleteFunc        func(ctx context.Context, evaluationID string) error
	GetFunc           func(ctx context.Context, evaluationID string) (models.Evaluation, error)
	ListSummariesFunc func(ctx context.Context) ([]models.SummaryRow, error)
}

func (m *MockEvaluationService) Create(ctx context.Context, in service.EvaluationInput) (models.Evaluation, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, in)
	}
	return models.Evaluation{}, errors.New("CreateFunc not implemented")
}

func (m *MockEvaluationService) Update(ctx context.Context, evaluationID string, in service.EvaluationInput) (models.Evaluation, error) {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, evaluationID, in)
	}
	return models.Evaluation{}, errors.New("UpdateFunc not implemented")
}

func (m *MockEvaluationService) Delete(ctx context.Context, evaluationID string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, evaluationID)
	}
	return errors.New("DeleteFunc not implemented")
}

func (m *MockEvaluationService) Get(ctx context.Context, evaluationID string) (models.Evaluation, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, evaluationID)
	}
	return models.Evaluation{}, errors.New("GetFunc not implemented")
}

func (m *MockEvaluationService) ListSummaries(ctx context.Context) ([]models.SummaryRow, error) {
	if m.ListSummariesFunc != nil {
		return m.ListSummariesFunc(ctx)
	}
	return nil, errors.New("ListSummariesFunc not implemented")
}

// MockAnalyticsService is a func-field mock of the handlers' analytics
// surface.
type MockAnalyticsService struct {
	AuditorIntelligenceFunc func(ctx context.Context) ([]service.AuditorMetrics, error)
	RiskFlagsFunc           func(ctx context.Context) ([]service.RiskFlag, error)
	HealthIndexesFunc       func(ctx context.Context) ([]service.AuditorHealth, error)
	DashboardFunc           func(ctx context.Context) (service.Dashboard, error)
	CoachingSummaryFunc     func(ctx context.Context, evaluationID string) (string, error)
}

func (m *MockAnalyticsService) AuditorIntelligence(ctx context.Context) ([]service.AuditorMetrics, error) {
	if m.AuditorIntelligenceFunc != nil {
		return m.AuditorIntelligenceFunc(ctx)
	}
	return nil, errors.New("AuditorIntelligenceFunc not implemented")
}

func (m *MockAnalyticsService) RiskFlags(ctx context.Context) ([]service.RiskFlag, error) {
	if m.RiskFlagsFunc != nil {
		return m.RiskFlagsFunc(ctx)
	}
	return nil, errors.New("RiskFlagsFunc not implemented")
}

func (m *MockAnalyticsService) HealthIndexes(ctx context.Context) ([]service.AuditorHealth, error) {
	if m.HealthIndexesFunc != nil {
		return m.HealthIndexesFunc(ctx)
	}
	return nil, errors.New("HealthIndexesFunc not implemented")
}

func (m *MockAnalyticsService) Dashboard(ctx context.Context) (service.Dashboard, error) {
	if m.DashboardFunc != nil {
		return m.DashboardFunc(ctx)
	}
	return service.Dashboard{}, errors.New("DashboardFunc not implemented")
}

func (m *MockAnalyticsService) CoachingSummary(ctx context.Context, evaluationID string) (string, error) {
	if m.CoachingSummaryFunc != nil {
		return m.CoachingSummaryFunc(ctx, evaluationID)
	}
	return "", errors.New("CoachingSummaryFunc not implemented")
}
