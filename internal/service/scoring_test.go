package service

import (
	"context"
	"errors"
	"testing"

	"github.com/godilite/ata-server/internal/repository/models"
	"github.com/godilite/ata-server/internal/rubric"
	"github.com/godilite/ata-server/internal/service/mocks"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func accuracyRow(param, result string) models.DetailRow {
	return models.DetailRow{Group: rubric.GroupAccuracySub, Parameter: param, Points: 0, Result: result}
}

func qualityRow(param, result string) models.DetailRow {
	return models.DetailRow{Group: rubric.GroupEvalQuality, Parameter: param, Points: 1, Result: result}
}

// TestNewEvaluationService tests the constructor
func TestNewEvaluationService(t *testing.T) {
	t.Run("valid parameters", func(t *testing.T) {
		mockStore := &mocks.MockEvaluationStore{}
		logger := zap.NewNop()

		service := NewEvaluationService(mockStore, logger)

		assert.NotNil(t, service)
		assert.Equal(t, mockStore, service.storage)
		assert.Equal(t, logger, service.logger)
	})

	t.Run("nil storage panics", func(t *testing.T) {
		assert.Panics(t, func() {
			NewEvaluationService(nil, zap.NewNop())
		})
	})

	t.Run("nil logger gets default", func(t *testing.T) {
		service := NewEvaluationService(&mocks.MockEvaluationStore{}, nil)

		assert.NotNil(t, service)
		assert.NotNil(t, service.logger)
	})
}

// TestComputeScore tests the scoring rules
func TestComputeScore(t *testing.T) {
	t.Run("all passing yields 100", func(t *testing.T) {
		rows := []models.DetailRow{
			accuracyRow("Billing Amount", "Pass"),
			accuracyRow("Customer Name", "Pass"),
			qualityRow("Tone & Professionalism", "Pass"),
			qualityRow("Comment Quality", "Pass"),
			qualityRow("Critical Error Identification", "Pass"),
		}

		result := ComputeScore(rows)

		assert.Equal(t, 100.0, result.Score)
		assert.Equal(t, 4, result.PassedPoints)
		assert.Equal(t, 0, result.FailedPoints)
		assert.Equal(t, 4, result.TotalPoints)
	})

	t.Run("one accuracy failure fails the whole category", func(t *testing.T) {
		rows := []models.DetailRow{
			accuracyRow("Billing Amount", "Fail"),
			accuracyRow("Customer Name", "Pass"),
			accuracyRow("Service Type", "Pass"),
			qualityRow("Tone & Professionalism", "Pass"),
			qualityRow("Comment Quality", "Pass"),
			qualityRow("Critical Error Identification", "Pass"),
		}

		result := ComputeScore(rows)

		// Accuracy gate lost: 3 of 4 points.
		assert.Equal(t, 75.0, result.Score)
		assert.Equal(t, 3, result.PassedPoints)
		assert.Equal(t, 1, result.FailedPoints)
		assert.Equal(t, 4, result.TotalPoints)
	})

	t.Run("quality rows are worth one point each", func(t *testing.T) {
		rows := []models.DetailRow{
			accuracyRow("Billing Amount", "Pass"),
			qualityRow("Tone & Professionalism", "Fail"),
			qualityRow("Comment Quality", "Pass"),
			qualityRow("Scoring Accuracy", "Fail"),
		}

		result := ComputeScore(rows)

		assert.Equal(t, 50.0, result.Score)
		assert.Equal(t, 2, result.PassedPoints)
		assert.Equal(t, 2, result.FailedPoints)
		assert.Equal(t, 4, result.TotalPoints)
	})

	t.Run("missing result counts as pass", func(t *testing.T) {
		rows := []models.DetailRow{
			accuracyRow("Billing Amount", ""),
			qualityRow("Tone & Professionalism", ""),
		}

		result := ComputeScore(rows)

		assert.Equal(t, 100.0, result.Score)
		assert.Equal(t, 2, result.PassedPoints)
	})

	t.Run("header rows are ignored", func(t *testing.T) {
		rows := []models.DetailRow{
			{Group: rubric.GroupHeader, Parameter: "Call ID", Result: "Fail"},
			qualityRow("Comment Quality", "Pass"),
		}

		result := ComputeScore(rows)

		// Accuracy gate still in play even with no accuracy rows.
		assert.Equal(t, 100.0, result.Score)
		assert.Equal(t, 2, result.TotalPoints)
	})

	t.Run("empty details", func(t *testing.T) {
		result := ComputeScore(nil)

		assert.Equal(t, 100.0, result.Score)
		assert.Equal(t, 1, result.PassedPoints)
		assert.Equal(t, 1, result.TotalPoints)
	})

	t.Run("score rounds to two decimals", func(t *testing.T) {
		rows := []models.DetailRow{
			accuracyRow("Billing Amount", "Fail"),
			qualityRow("Tone & Professionalism", "Pass"),
			qualityRow("Comment Quality", "Pass"),
		}

		result := ComputeScore(rows)

		// 2/3 = 66.666... -> 66.67
		assert.Equal(t, 66.67, result.Score)
	})

	t.Run("deterministic for identical input", func(t *testing.T) {
		rows := []models.DetailRow{
			accuracyRow("Billing Amount", "Fail"),
			qualityRow("Tone & Professionalism", "Pass"),
		}

		first := ComputeScore(rows)
		second := ComputeScore(rows)

		assert.Equal(t, first, second)
	})
}

// TestNextEvaluationID tests evaluation ID sequencing
func TestNextEvaluationID(t *testing.T) {
	t.Run("first evaluation of the day", func(t *testing.T) {
		id := NextEvaluationID(nil, "2025-06-01")

		assert.Equal(t, "ATA-20250601-0001", id)
	})

	t.Run("continues from highest sequence", func(t *testing.T) {
		summaries := []models.SummaryRow{
			{EvaluationID: "ATA-20250601-0001"},
			{EvaluationID: "ATA-20250601-0007"},
			{EvaluationID: "ATA-20250601-0003"},
		}

		id := NextEvaluationID(summaries, "2025-06-01")

		assert.Equal(t, "ATA-20250601-0008", id)
	})

	t.Run("sequence resets per date", func(t *testing.T) {
		summaries := []models.SummaryRow{
			{EvaluationID: "ATA-20250601-0005"},
		}

		id := NextEvaluationID(summaries, "2025-06-02")

		assert.Equal(t, "ATA-20250602-0001", id)
	})

	t.Run("ignores malformed suffixes", func(t *testing.T) {
		summaries := []models.SummaryRow{
			{EvaluationID: "ATA-20250601-junk"},
			{EvaluationID: "ATA-20250601-0002"},
			{EvaluationID: "  ATA-20250601-0004  "},
		}

		id := NextEvaluationID(summaries, "2025-06-01")

		assert.Equal(t, "ATA-20250601-0005", id)
	})
}

// TestCreateEvaluation tests the create path
func TestCreateEvaluation(t *testing.T) {
	logger := zap.NewNop()
	ctx := context.Background()

	input := EvaluationInput{
		EvaluationDate: "2025-06-01",
		AuditDate:      "2025-05-30",
		Reaudit:        "No",
		QAName:         "Priya",
		Auditor:        "Daniel",
		CallID:         "C-1001",
		Details: []DetailInput{
			{Group: rubric.GroupAccuracySub, Parameter: "Billing Amount", Result: "Pass"},
			{Group: rubric.GroupEvalQuality, Parameter: "Comment Quality", Points: 1, Result: "Fail", Comment: "Vague comments"},
		},
	}

	t.Run("assigns id and recomputes score", func(t *testing.T) {
		var stored models.Evaluation
		mockStore := &mocks.MockEvaluationStore{
			ReadAllSummariesFunc: func(ctx context.Context) ([]models.SummaryRow, error) {
				return []models.SummaryRow{{EvaluationID: "ATA-20250601-0002"}}, nil
			},
			UpsertFunc: func(ctx context.Context, ev models.Evaluation) error {
				stored = ev
				return nil
			},
		}

		service := NewEvaluationService(mockStore, logger)
		ev, err := service.Create(ctx, input)

		assert.NoError(t, err)
		assert.Equal(t, "ATA-20250601-0003", ev.Summary.EvaluationID)
		assert.Equal(t, 50.0, ev.Summary.OverallScore)
		assert.Equal(t, 2.0, ev.Summary.TotalPoints)
		assert.Equal(t, stored.Summary, ev.Summary)
		assert.Len(t, ev.Details, 2)

		// Details carry the denormalized header fields.
		for _, d := range ev.Details {
			assert.Equal(t, "ATA-20250601-0003", d.EvaluationID)
			assert.Equal(t, "Daniel", d.Auditor)
			assert.Equal(t, 50.0, d.OverallScore)
		}
	})

	t.Run("read failure", func(t *testing.T) {
		mockStore := &mocks.MockEvaluationStore{
			ReadAllSummariesFunc: func(ctx context.Context) ([]models.SummaryRow, error) {
				return nil, errors.New("disk gone")
			},
		}

		service := NewEvaluationService(mockStore, logger)
		_, err := service.Create(ctx, input)

		assert.ErrorIs(t, err, ErrStorageFailure)
		assert.Contains(t, err.Error(), "disk gone")
	})

	t.Run("upsert failure", func(t *testing.T) {
		mockStore := &mocks.MockEvaluationStore{
			ReadAllSummariesFunc: func(ctx context.Context) ([]models.SummaryRow, error) {
				return nil, nil
			},
			UpsertFunc: func(ctx context.Context, ev models.Evaluation) error {
				return errors.New("write locked")
			},
		}

		service := NewEvaluationService(mockStore, logger)
		_, err := service.Create(ctx, input)

		assert.ErrorIs(t, err, ErrStorageFailure)
	})
}

// TestUpdateEvaluation tests the full-replace path
func TestUpdateEvaluation(t *testing.T) {
	logger := zap.NewNop()
	ctx := context.Background()

	input := EvaluationInput{
		EvaluationDate: "2025-06-01",
		QAName:         "Priya",
		Auditor:        "Daniel",
		Details: []DetailInput{
			{Group: rubric.GroupEvalQuality, Parameter: "Comment Quality", Points: 1, Result: "Pass"},
		},
	}

	t.Run("replaces existing evaluation", func(t *testing.T) {
		var stored models.Evaluation
		mockStore := &mocks.MockEvaluationStore{
			ReadAllSummariesFunc: func(ctx context.Context) ([]models.SummaryRow, error) {
				return []models.SummaryRow{{EvaluationID: "ATA-20250601-0001"}}, nil
			},
			UpsertFunc: func(ctx context.Context, ev models.Evaluation) error {
				stored = ev
				return nil
			},
		}

		service := NewEvaluationService(mockStore, logger)
		ev, err := service.Update(ctx, "ATA-20250601-0001", input)

		assert.NoError(t, err)
		assert.Equal(t, "ATA-20250601-0001", ev.Summary.EvaluationID)
		assert.Equal(t, 100.0, ev.Summary.OverallScore)
		assert.Equal(t, "ATA-20250601-0001", stored.Summary.EvaluationID)
	})

	t.Run("unknown id", func(t *testing.T) {
		mockStore := &mocks.MockEvaluationStore{
			ReadAllSummariesFunc: func(ctx context.Context) ([]models.SummaryRow, error) {
				return []models.SummaryRow{{EvaluationID: "ATA-20250601-0001"}}, nil
			},
		}

		service := NewEvaluationService(mockStore, logger)
		_, err := service.Update(ctx, "ATA-20250601-9999", input)

		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("blank id", func(t *testing.T) {
		service := NewEvaluationService(&mocks.MockEvaluationStore{}, logger)
		_, err := service.Update(ctx, "   ", input)

		assert.ErrorIs(t, err, ErrInvalidEvaluation)
	})
}

// TestDeleteEvaluation tests the delete path
func TestDeleteEvaluation(t *testing.T) {
	logger := zap.NewNop()
	ctx := context.Background()

	t.Run("removes existing evaluation", func(t *testing.T) {
		var deletedID string
		mockStore := &mocks.MockEvaluationStore{
			DeleteFunc: func(ctx context.Context, evaluationID string) (bool, error) {
				deletedID = evaluationID
				return true, nil
			},
		}

		service := NewEvaluationService(mockStore, logger)
		err := service.Delete(ctx, "ATA-20250601-0001")

		assert.NoError(t, err)
		assert.Equal(t, "ATA-20250601-0001", deletedID)
	})

	t.Run("unknown id reports not found", func(t *testing.T) {
		mockStore := &mocks.MockEvaluationStore{
			DeleteFunc: func(ctx context.Context, evaluationID string) (bool, error) {
				return false, nil
			},
		}

		service := NewEvaluationService(mockStore, logger)
		err := service.Delete(ctx, "ATA-20250601-9999")

		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("storage failure", func(t *testing.T) {
		mockStore := &mocks.MockEvaluationStore{
			DeleteFunc: func(ctx context.Context, evaluationID string) (bool, error) {
				return false, errors.New("db locked")
			},
		}

		service := NewEvaluationService(mockStore, logger)
		err := service.Delete(ctx, "ATA-20250601-0001")

		assert.ErrorIs(t, err, ErrStorageFailure)
		assert.Contains(t, err.Error(), "db locked")
	})
}

// TestGetEvaluation tests the single-record read
func TestGetEvaluation(t *testing.T) {
	logger := zap.NewNop()
	ctx := context.Background()

	summaries := []models.SummaryRow{
		{EvaluationID: "ATA-20250601-0001", Auditor: "Daniel"},
		{EvaluationID: "ATA-20250601-0002", Auditor: "Maya"},
	}
	details := []models.DetailRow{
		{EvaluationID: "ATA-20250601-0001", Group: rubric.GroupEvalQuality, Parameter: "Comment Quality"},
		{EvaluationID: "ATA-20250601-0002", Group: rubric.GroupEvalQuality, Parameter: "Comment Quality"},
		{EvaluationID: "ATA-20250601-0001", Group: rubric.GroupAccuracySub, Parameter: "Billing Amount"},
	}

	t.Run("returns only the matching rows", func(t *testing.T) {
		mockStore := &mocks.MockEvaluationStore{
			ReadAllSummariesFunc: func(ctx context.Context) ([]models.SummaryRow, error) { return summaries, nil },
			ReadAllDetailsFunc:   func(ctx context.Context) ([]models.DetailRow, error) { return details, nil },
		}

		service := NewEvaluationService(mockStore, logger)
		ev, err := service.Get(ctx, "ata-20250601-0001")

		assert.NoError(t, err)
		assert.Equal(t, "Daniel", ev.Summary.Auditor)
		assert.Len(t, ev.Details, 2)
	})

	t.Run("unknown id", func(t *testing.T) {
		mockStore := &mocks.MockEvaluationStore{
			ReadAllSummariesFunc: func(ctx context.Context) ([]models.SummaryRow, error) { return summaries, nil },
		}

		service := NewEvaluationService(mockStore, logger)
		_, err := service.Get(ctx, "ATA-20250601-0009")

		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("blank id", func(t *testing.T) {
		service := NewEvaluationService(&mocks.MockEvaluationStore{}, logger)
		_, err := service.Get(ctx, "")

		assert.ErrorIs(t, err, ErrInvalidEvaluation)
	})
}
