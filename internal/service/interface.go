package service

import (
	"context"

	"github.com/godilite/ata-server/internal/repository/models"
)

// EvaluationStore defines the audit-log storage operations the services need.
type EvaluationStore interface {
	ReadAllSummaries(ctx context.Context) ([]models.SummaryRow, error)
	ReadAllDetails(ctx context.Context) ([]models.DetailRow, error)
	Upsert(ctx context.Context, ev models.Evaluation) error
	Delete(ctx context.Context, evaluationID string) (bool, error)
}
