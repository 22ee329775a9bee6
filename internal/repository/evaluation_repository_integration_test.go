package repository_test

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/godilite/ata-server/internal/repository"
	"github.com/godilite/ata-server/internal/repository/models"
)

func setupTestStore(t *testing.T) *repository.SheetStore {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store := repository.NewSheetStore(db)
	require.NoError(t, store.EnsureSchema(context.Background()))
	return store
}

func sampleEvaluation(id string) models.Evaluation {
	summary := models.SummaryRow{
		EvaluationID:    id,
		EvaluationDate:  "2025-06-01",
		AuditDate:       "2025-05-30",
		Reaudit:         "No",
		QAName:          "Priya",
		Auditor:         "Daniel",
		CallID:          "C-1001",
		CallDuration:    "00:07:12",
		CallDisposition: "Resolved",
		OverallScore:    87.5,
		PassedPoints:    7,
		FailedPoints:    1,
		TotalPoints:     8,
	}
	return models.Evaluation{
		Summary: summary,
		Details: []models.DetailRow{
			{Group: "ACCURACY_SUB", Parameter: "Billing Amount", Points: 1, Result: "Pass"},
			{Group: "EVAL_QUALITY", Parameter: "Comment Quality", Points: 1, Result: "Fail", Comment: "Too brief"},
		},
	}
}

func TestSheetStore(t *testing.T) {
	ctx := context.Background()

	t.Run("absent sheet reads empty", func(t *testing.T) {
		store := setupTestStore(t)

		header, rows, err := store.Records(ctx, repository.SheetSummary)

		require.NoError(t, err)
		assert.Nil(t, header)
		assert.Empty(t, rows)
	})

	t.Run("rewrite round-trips header and rows", func(t *testing.T) {
		store := setupTestStore(t)

		header := []string{"A", "B"}
		rows := [][]string{{"1", "x"}, {"2", "y"}}
		require.NoError(t, store.Rewrite(ctx, repository.SheetSummary, header, rows))

		gotHeader, gotRows, err := store.Records(ctx, repository.SheetSummary)

		require.NoError(t, err)
		assert.Equal(t, header, gotHeader)
		assert.Equal(t, rows, gotRows)
	})

	t.Run("rewrite replaces previous content", func(t *testing.T) {
		store := setupTestStore(t)

		require.NoError(t, store.Rewrite(ctx, repository.SheetSummary, []string{"A"}, [][]string{{"old"}}))
		require.NoError(t, store.Rewrite(ctx, repository.SheetSummary, []string{"A"}, [][]string{{"new"}}))

		_, rows, err := store.Records(ctx, repository.SheetSummary)

		require.NoError(t, err)
		assert.Equal(t, [][]string{{"new"}}, rows)
	})

	t.Run("sheets are independent", func(t *testing.T) {
		store := setupTestStore(t)

		require.NoError(t, store.Rewrite(ctx, repository.SheetSummary, []string{"A"}, [][]string{{"s"}}))
		require.NoError(t, store.Rewrite(ctx, repository.SheetDetails, []string{"B"}, [][]string{{"d"}}))

		header, rows, err := store.Records(ctx, repository.SheetDetails)

		require.NoError(t, err)
		assert.Equal(t, []string{"B"}, header)
		assert.Equal(t, [][]string{{"d"}}, rows)
	})
}

func TestNormID(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"ATA-20250601-0001", "ATA-20250601-0001"},
		{"  ATA-20250601-0001  ", "ATA-20250601-0001"},
		{"nan", ""},
		{"NaN", ""},
		{"none", ""},
		{"None", ""},
		{"   ", ""},
		{"", ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, repository.NormID(tc.in), "input %q", tc.in)
	}
}

func TestEvaluationRepository(t *testing.T) {
	ctx := context.Background()

	newRepo := func(t *testing.T) *repository.EvaluationRepository {
		return repository.NewEvaluationRepository(setupTestStore(t))
	}

	t.Run("upsert then read back", func(t *testing.T) {
		repo := newRepo(t)

		require.NoError(t, repo.Upsert(ctx, sampleEvaluation("ATA-20250601-0001")))

		summaries, err := repo.ReadAllSummaries(ctx)
		require.NoError(t, err)
		require.Len(t, summaries, 1)
		assert.Equal(t, "ATA-20250601-0001", summaries[0].EvaluationID)
		assert.Equal(t, 87.5, summaries[0].OverallScore)
		assert.Equal(t, "Daniel", summaries[0].Auditor)
		assert.NotEmpty(t, summaries[0].LastUpdated)

		details, err := repo.ReadAllDetails(ctx)
		require.NoError(t, err)
		require.Len(t, details, 2)
		// Header fields denormalize from the summary.
		assert.Equal(t, "ATA-20250601-0001", details[0].EvaluationID)
		assert.Equal(t, "Daniel", details[0].Auditor)
		assert.Equal(t, 87.5, details[0].OverallScore)
		assert.Equal(t, "Comment Quality", details[1].Parameter)
	})

	t.Run("re-upsert leaves no duplicates", func(t *testing.T) {
		repo := newRepo(t)

		require.NoError(t, repo.Upsert(ctx, sampleEvaluation("ATA-20250601-0001")))

		updated := sampleEvaluation("ATA-20250601-0001")
		updated.Summary.OverallScore = 100
		updated.Details = updated.Details[:1]
		require.NoError(t, repo.Upsert(ctx, updated))

		summaries, err := repo.ReadAllSummaries(ctx)
		require.NoError(t, err)
		require.Len(t, summaries, 1)
		assert.Equal(t, 100.0, summaries[0].OverallScore)

		details, err := repo.ReadAllDetails(ctx)
		require.NoError(t, err)
		assert.Len(t, details, 1)
	})

	t.Run("upsert keeps unrelated evaluations", func(t *testing.T) {
		repo := newRepo(t)

		require.NoError(t, repo.Upsert(ctx, sampleEvaluation("ATA-20250601-0001")))
		other := sampleEvaluation("ATA-20250601-0002")
		other.Summary.Auditor = "Maya"
		require.NoError(t, repo.Upsert(ctx, other))

		summaries, err := repo.ReadAllSummaries(ctx)
		require.NoError(t, err)
		assert.Len(t, summaries, 2)
	})

	t.Run("upsert rejects blank id", func(t *testing.T) {
		repo := newRepo(t)

		err := repo.Upsert(ctx, sampleEvaluation("  nan "))

		assert.ErrorIs(t, err, repository.ErrInvalidEvaluationID)
	})

	t.Run("delete removes both sheets' rows", func(t *testing.T) {
		repo := newRepo(t)

		require.NoError(t, repo.Upsert(ctx, sampleEvaluation("ATA-20250601-0001")))
		require.NoError(t, repo.Upsert(ctx, sampleEvaluation("ATA-20250601-0002")))

		removed, err := repo.Delete(ctx, "ATA-20250601-0001")
		require.NoError(t, err)
		assert.True(t, removed)

		summaries, err := repo.ReadAllSummaries(ctx)
		require.NoError(t, err)
		require.Len(t, summaries, 1)
		assert.Equal(t, "ATA-20250601-0002", summaries[0].EvaluationID)

		details, err := repo.ReadAllDetails(ctx)
		require.NoError(t, err)
		for _, d := range details {
			assert.Equal(t, "ATA-20250601-0002", d.EvaluationID)
		}
	})

	t.Run("delete of unknown id is a no-op", func(t *testing.T) {
		repo := newRepo(t)

		require.NoError(t, repo.Upsert(ctx, sampleEvaluation("ATA-20250601-0001")))

		removed, err := repo.Delete(ctx, "ATA-20250601-0099")
		require.NoError(t, err)
		assert.False(t, removed)

		summaries, err := repo.ReadAllSummaries(ctx)
		require.NoError(t, err)
		assert.Len(t, summaries, 1)
	})

	t.Run("delete of blank id is a no-op", func(t *testing.T) {
		repo := newRepo(t)

		removed, err := repo.Delete(ctx, "nan")

		require.NoError(t, err)
		assert.False(t, removed)
	})

	t.Run("column matching tolerates renamed headers", func(t *testing.T) {
		store := setupTestStore(t)
		repo := repository.NewEvaluationRepository(store)

		// A hand-edited sheet: underscored, lowercased, reordered columns.
		header := []string{"evaluation_id", "auditor", "Overall Score %", "call id"}
		rows := [][]string{{"ATA-20250601-0001", "Daniel", "92.5", "C-77"}}
		require.NoError(t, store.Rewrite(ctx, repository.SheetSummary, header, rows))

		summaries, err := repo.ReadAllSummaries(ctx)
		require.NoError(t, err)
		require.Len(t, summaries, 1)
		assert.Equal(t, "ATA-20250601-0001", summaries[0].EvaluationID)
		assert.Equal(t, "Daniel", summaries[0].Auditor)
		assert.Equal(t, 92.5, summaries[0].OverallScore)
		assert.Equal(t, "C-77", summaries[0].CallID)
		// Columns absent from the sheet come back zero-valued.
		assert.Empty(t, summaries[0].QAName)
		assert.Equal(t, 0.0, summaries[0].TotalPoints)
	})

	t.Run("dirty numeric cells degrade to zero", func(t *testing.T) {
		store := setupTestStore(t)
		repo := repository.NewEvaluationRepository(store)

		header := []string{"Evaluation ID", "Overall Score %", "Total Points"}
		rows := [][]string{{"ATA-20250601-0001", "not-a-number", ""}}
		require.NoError(t, store.Rewrite(ctx, repository.SheetSummary, header, rows))

		summaries, err := repo.ReadAllSummaries(ctx)
		require.NoError(t, err)
		require.Len(t, summaries, 1)
		assert.Equal(t, 0.0, summaries[0].OverallScore)
		assert.Equal(t, 0.0, summaries[0].TotalPoints)
	})

	t.Run("legacy nan ids never match a delete", func(t *testing.T) {
		store := setupTestStore(t)
		repo := repository.NewEvaluationRepository(store)

		header := []string{"Evaluation ID", "Auditor"}
		rows := [][]string{{"nan", "Daniel"}, {"ATA-20250601-0001", "Maya"}}
		require.NoError(t, store.Rewrite(ctx, repository.SheetSummary, header, rows))
		require.NoError(t, store.Rewrite(ctx, repository.SheetDetails, []string{"Evaluation ID"}, nil))

		removed, err := repo.Delete(ctx, "nan")
		require.NoError(t, err)
		assert.False(t, removed)

		summaries, err := repo.ReadAllSummaries(ctx)
		require.NoError(t, err)
		assert.Len(t, summaries, 2)
	})
}
