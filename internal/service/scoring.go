package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/godilite/ata-server/internal/repository"
	"github.com/godilite/ata-server/internal/repository/models"
	"github.com/godilite/ata-server/internal/rubric"
)

const (
	storeTimeout = 10 * time.Second

	evaluationIDPrefix = "ATA"
	resultPass         = "Pass"
	resultFail         = "Fail"
)

var (
	ErrNotFound          = errors.New("evaluation not found")
	ErrInvalidEvaluation = errors.New("invalid evaluation")
	ErrStorageFailure    = errors.New("storage failure")
)

// ComputeScore turns one evaluation's detail rows into point totals and a
// percentage. The accuracy category is a single 1-point gate: one failed
// sub-parameter fails the whole category. Each evaluation-quality row is
// worth 1 point on its own. HEADER rows are ignored. A missing Result counts
// as a pass.
func ComputeScore(rows []models.DetailRow) ScoreResult {
	accuracyFailed := false
	evalQualityTotal := 0
	evalQualityPassed := 0

	for _, row := range rows {
		result := row.Result
		if result == "" {
			result = resultPass
		}
		switch row.Group {
		case rubric.GroupAccuracySub:
			if result == resultFail {
				accuracyFailed = true
			}
		case rubric.GroupEvalQuality:
			evalQualityTotal++
			if result == resultPass {
				evalQualityPassed++
			}
		}
	}

	accuracyPassed := 1
	if accuracyFailed {
		accuracyPassed = 0
	}

	totalPoints := 1 + evalQualityTotal
	passedPoints := accuracyPassed + evalQualityPassed
	failedPoints := totalPoints - passedPoints

	score := 0.0
	if totalPoints > 0 {
		score = math.Round(float64(passedPoints)/float64(totalPoints)*100*100) / 100
	}

	return ScoreResult{
		Score:        score,
		PassedPoints: passedPoints,
		FailedPoints: failedPoints,
		TotalPoints:  totalPoints,
	}
}

// EvaluationService owns the evaluation lifecycle: create, full-replace
// update, delete, and reads.
type EvaluationService struct {
	storage EvaluationStore
	logger  *zap.Logger
}

func NewEvaluationService(storage EvaluationStore, logger *zap.Logger) *EvaluationService {
	if storage == nil {
		panic("storage must not be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EvaluationService{storage: storage, logger: logger}
}

// Create scores the submitted details, assigns the next evaluation ID for the
// evaluation date, and persists the record.
func (s *EvaluationService) Create(ctx context.Context, in EvaluationInput) (models.Evaluation, error) {
	dbCtx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	summaries, err := s.storage.ReadAllSummaries(dbCtx)
	if err != nil {
		return models.Evaluation{}, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}

	id := NextEvaluationID(summaries, in.EvaluationDate)
	ev := buildEvaluation(id, in)

	if err := s.upsert(dbCtx, ev); err != nil {
		return models.Evaluation{}, err
	}

	s.logger.Info("evaluation created",
		zap.String("evaluation_id", id),
		zap.String("auditor", ev.Summary.Auditor),
		zap.Float64("score", ev.Summary.OverallScore))
	return ev, nil
}

// Update replaces an existing evaluation in full. The ID is kept; everything
// else, score included, is rebuilt from the input.
func (s *EvaluationService) Update(ctx context.Context, evaluationID string, in EvaluationInput) (models.Evaluation, error) {
	rid := repository.NormID(evaluationID)
	if rid == "" {
		return models.Evaluation{}, fmt.Errorf("%w: missing evaluation id", ErrInvalidEvaluation)
	}

	dbCtx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	summaries, err := s.storage.ReadAllSummaries(dbCtx)
	if err != nil {
		return models.Evaluation{}, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}
	if !summaryExists(summaries, rid) {
		return models.Evaluation{}, fmt.Errorf("%w: %s", ErrNotFound, rid)
	}

	ev := buildEvaluation(rid, in)
	if err := s.upsert(dbCtx, ev); err != nil {
		return models.Evaluation{}, err
	}

	s.logger.Info("evaluation replaced", zap.String("evaluation_id", rid))
	return ev, nil
}

// Delete removes the evaluation's summary row and all its detail rows.
// Unknown IDs report ErrNotFound rather than failing the store.
func (s *EvaluationService) Delete(ctx context.Context, evaluationID string) error {
	dbCtx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	removed, err := s.storage.Delete(dbCtx, evaluationID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}
	if !removed {
		return fmt.Errorf("%w: %s", ErrNotFound, evaluationID)
	}

	s.logger.Info("evaluation deleted", zap.String("evaluation_id", evaluationID))
	return nil
}

// Get returns one evaluation with its detail rows in stored order.
func (s *EvaluationService) Get(ctx context.Context, evaluationID string) (models.Evaluation, error) {
	rid := repository.NormID(evaluationID)
	if rid == "" {
		return models.Evaluation{}, fmt.Errorf("%w: missing evaluation id", ErrInvalidEvaluation)
	}

	dbCtx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	summaries, err := s.storage.ReadAllSummaries(dbCtx)
	if err != nil {
		return models.Evaluation{}, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}

	var ev models.Evaluation
	found := false
	for _, row := range summaries {
		if repository.NormID(row.EvaluationID) == rid {
			ev.Summary = row
			found = true
			break
		}
	}
	if !found {
		return models.Evaluation{}, fmt.Errorf("%w: %s", ErrNotFound, rid)
	}

	details, err := s.storage.ReadAllDetails(dbCtx)
	if err != nil {
		return models.Evaluation{}, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}
	for _, row := range details {
		if repository.NormID(row.EvaluationID) == rid {
			ev.Details = append(ev.Details, row)
		}
	}
	return ev, nil
}

// ListSummaries returns every summary row in the audit log.
func (s *EvaluationService) ListSummaries(ctx context.Context) ([]models.SummaryRow, error) {
	dbCtx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	summaries, err := s.storage.ReadAllSummaries(dbCtx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}
	return summaries, nil
}

func (s *EvaluationService) upsert(ctx context.Context, ev models.Evaluation) error {
	if err := s.storage.Upsert(ctx, ev); err != nil {
		if errors.Is(err, repository.ErrInvalidEvaluationID) {
			return fmt.Errorf("%w: %v", ErrInvalidEvaluation, err)
		}
		return fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}
	return nil
}

// NextEvaluationID computes the next ID for a date: ATA-YYYYMMDD-NNNN where
// NNNN is the highest existing sequence for that date plus one. The sequence
// resets per evaluation date. Unparseable suffixes count as zero.
func NextEvaluationID(summaries []models.SummaryRow, evaluationDate string) string {
	prefix := fmt.Sprintf("%s-%s-", evaluationIDPrefix, strings.ReplaceAll(evaluationDate, "-", ""))

	maxSeq := 0
	for _, row := range summaries {
		id := strings.TrimSpace(row.EvaluationID)
		if !strings.HasPrefix(id, prefix) {
			continue
		}
		seq, err := strconv.Atoi(id[strings.LastIndex(id, "-")+1:])
		if err != nil {
			continue
		}
		if seq > maxSeq {
			maxSeq = seq
		}
	}
	return fmt.Sprintf("%s%04d", prefix, maxSeq+1)
}

func buildEvaluation(id string, in EvaluationInput) models.Evaluation {
	details := make([]models.DetailRow, 0, len(in.Details))
	for _, d := range in.Details {
		details = append(details, models.DetailRow{
			EvaluationID: id,
			Group:        d.Group,
			Parameter:    d.Parameter,
			Points:       d.Points,
			Description:  d.Description,
			Result:       d.Result,
			Comment:      d.Comment,
		})
	}

	score := ComputeScore(details)
	summary := models.SummaryRow{
		EvaluationID:    id,
		EvaluationDate:  in.EvaluationDate,
		AuditDate:       in.AuditDate,
		Reaudit:         in.Reaudit,
		QAName:          in.QAName,
		Auditor:         in.Auditor,
		CallID:          in.CallID,
		CallDuration:    in.CallDuration,
		CallDisposition: in.CallDisposition,
		OverallScore:    score.Score,
		PassedPoints:    float64(score.PassedPoints),
		FailedPoints:    float64(score.FailedPoints),
		TotalPoints:     float64(score.TotalPoints),
	}

	for i := range details {
		details[i].EvaluationDate = summary.EvaluationDate
		details[i].AuditDate = summary.AuditDate
		details[i].Reaudit = summary.Reaudit
		details[i].QAName = summary.QAName
		details[i].Auditor = summary.Auditor
		details[i].CallID = summary.CallID
		details[i].OverallScore = summary.OverallScore
	}

	return models.Evaluation{Summary: summary, Details: details}
}

func summaryExists(summaries []models.SummaryRow, rid string) bool {
	for _, row := range summaries {
		if repository.NormID(row.EvaluationID) == rid {
			return true
		}
	}
	return false
}
