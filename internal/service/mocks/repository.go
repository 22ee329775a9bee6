package mocks

import (
	"context"
	"errors"

	"github.com/godilite/ata-server/internal/repository/models"
)

// MockEvaluationStore is a mock implementation of the EvaluationStore
// interface for testing the service layer.
type MockEvaluationStore struct {
	ReadAllSummariesFunc func(ctx context.Context) ([]models.SummaryRow, error)
	ReadAllDetailsFunc   func(ctx context.Context) ([]models.DetailRow, error)
	UpsertFunc           func(ctx context.Context, ev models.Evaluation) error
	DeleteFunc           func(ctx context.Context, evaluationID string) (bool, error)
}

func (m *MockEvaluationStore) ReadAllSummaries(ctx context.Context) ([]models.SummaryRow, error) {
	if m.ReadAllSummariesFunc != nil {
		return m.ReadAllSummariesFunc(ctx)
	}
	return nil, errors.New("ReadAllSummariesFunc not implemented")
}

func (m *MockEvaluationStore) ReadAllDetails(ctx context.Context) ([]models.DetailRow, error) {
	if m.ReadAllDetailsFunc != nil {
		return m.ReadAllDetailsFunc(ctx)
	}
	return nil, errors.New("ReadAllDetailsFunc not implemented")
}

func (m *MockEvaluationStore) Upsert(ctx context.Context, ev models.Evaluation) error {
	if m.UpsertFunc != nil {
		return m.UpsertFunc(ctx, ev)
	}
	return errors.New("UpsertFunc not implemented")
}

func (m *MockEvaluationStore) Delete(ctx context.Context, evaluationID string) (bool, error) {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, evaluationID)
	}
	return false, errors.New("DeleteFunc not implemented")
}
