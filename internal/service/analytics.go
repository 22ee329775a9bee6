package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/godilite/ata-server/internal/repository/models"
)

// CriticalErrorParameter is the rubric parameter whose failures drive risk
// escalation. Matching is an exact lowercase comparison on this literal name;
// renaming the parameter in the rubric silently decouples it from risk
// scoring, so keep the two in sync.
const CriticalErrorParameter = "critical error identification"

const repeatFailureWindow = 30 * 24 * time.Hour

const (
	RiskLow      = "Low"
	RiskModerate = "Moderate"
	RiskHigh     = "High"
)

const unknownAuditor = "Unknown"

func auditorName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return unknownAuditor
	}
	return s
}

// parseSheetDate accepts the date layouts that show up in the audit log.
// Anything unparseable is reported as a zero time, never an error.
func parseSheetDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"2006-01-02", "2006-01-02 15:04:05", "02/01/2006"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ComputeAuditorIntelligence aggregates the evaluation history into
// per-auditor metrics. Empty input yields an empty, correctly-shaped slice;
// it never fails. The repeat-failure window is anchored at the latest
// evaluation date present in the details, not the wall clock, so the metric
// is reproducible against historical data.
func ComputeAuditorIntelligence(summaries []models.SummaryRow, details []models.DetailRow) []AuditorMetrics {
	if len(summaries) == 0 {
		return []AuditorMetrics{}
	}

	type acc struct {
		scores      []float64
		failPoints  float64
		totalPoints float64
		reauditYes  int
		count       int
	}
	byAuditor := make(map[string]*acc)
	for _, row := range summaries {
		name := auditorName(row.Auditor)
		a := byAuditor[name]
		if a == nil {
			a = &acc{}
			byAuditor[name] = a
		}
		a.scores = append(a.scores, row.OverallScore)
		a.failPoints += row.FailedPoints
		a.totalPoints += row.TotalPoints
		if strings.EqualFold(strings.TrimSpace(row.Reaudit), "yes") {
			a.reauditYes++
		}
		a.count++
	}

	repeatCounts := repeatFailureCounts(details)

	names := make([]string, 0, len(byAuditor))
	for name := range byAuditor {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]AuditorMetrics, 0, len(names))
	for _, name := range names {
		a := byAuditor[name]

		failureRate := 0.0
		if a.totalPoints > 0 {
			failureRate = a.failPoints / a.totalPoints * 100
		}

		out = append(out, AuditorMetrics{
			Auditor:            name,
			AvgScore:           mean(a.scores),
			FailureRate:        failureRate,
			ReauditRatio:       float64(a.reauditYes) / float64(a.count) * 100,
			Volatility:         sampleStdDev(a.scores),
			RepeatFailureCount: repeatCounts[name],
		})
	}
	return out
}

// repeatFailureCounts counts, per auditor, the distinct parameters failed at
// least 3 times within the trailing 30-day window ending at the latest
// evaluation date in the data.
func repeatFailureCounts(details []models.DetailRow) map[string]int {
	var latest time.Time
	haveDates := false
	for _, row := range details {
		if t, ok := parseSheetDate(row.EvaluationDate); ok {
			if !haveDates || t.After(latest) {
				latest = t
				haveDates = true
			}
		}
	}

	type key struct{ auditor, parameter string }
	failsByParam := make(map[key]int)
	for _, row := range details {
		if !strings.EqualFold(strings.TrimSpace(row.Result), "fail") {
			continue
		}
		param := strings.TrimSpace(row.Parameter)
		if param == "" {
			continue
		}
		if haveDates {
			t, ok := parseSheetDate(row.EvaluationDate)
			if !ok || t.Before(latest.Add(-repeatFailureWindow)) {
				continue
			}
		}
		failsByParam[key{auditorName(row.Auditor), param}]++
	}

	counts := make(map[string]int)
	for k, n := range failsByParam {
		if n >= 3 {
			counts[k.auditor]++
		}
	}
	return counts
}

// ComputeRiskFlags derives a risk classification for each auditor from the
// intelligence metrics plus critical-parameter failures in the details.
func ComputeRiskFlags(metrics []AuditorMetrics, details []models.DetailRow) []RiskFlag {
	if len(metrics) == 0 {
		return []RiskFlag{}
	}

	criticalFails := make(map[string]int)
	for _, row := range details {
		if strings.ToLower(strings.TrimSpace(row.Parameter)) != CriticalErrorParameter {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(row.Result), "fail") {
			criticalFails[auditorName(row.Auditor)]++
		}
	}

	out := make([]RiskFlag, 0, len(metrics))
	for _, m := range metrics {
		points := 0
		if m.AvgScore < 85 {
			points += 2
		}
		if m.RepeatFailureCount >= 1 {
			points += 2
		}
		if criticalFails[m.Auditor] > 0 {
			points += 3
		}
		if m.ReauditRatio > 30 {
			points++
		}

		level := RiskLow
		switch {
		case points <= 1:
			level = RiskLow
		case points <= 3:
			level = RiskModerate
		default:
			level = RiskHigh
		}

		out = append(out, RiskFlag{
			Auditor:                m.Auditor,
			RiskPoints:             points,
			RiskLevel:              level,
			QAInterventionRequired: level == RiskHigh,
			CoachingRequired:       level == RiskModerate || level == RiskHigh,
		})
	}
	return out
}

// ComputeHealthIndex derives the composite 0-100 health index per auditor.
func ComputeHealthIndex(metrics []AuditorMetrics, details []models.DetailRow) []AuditorHealth {
	if len(metrics) == 0 {
		return []AuditorHealth{}
	}

	criticalTotal := make(map[string]int)
	criticalFailed := make(map[string]int)
	for _, row := range details {
		if strings.ToLower(strings.TrimSpace(row.Parameter)) != CriticalErrorParameter {
			continue
		}
		name := auditorName(row.Auditor)
		criticalTotal[name]++
		if strings.EqualFold(strings.TrimSpace(row.Result), "fail") {
			criticalFailed[name]++
		}
	}

	out := make([]AuditorHealth, 0, len(metrics))
	for _, m := range metrics {
		criticalFailRate := 0.0
		if n := criticalTotal[m.Auditor]; n > 0 {
			criticalFailRate = float64(criticalFailed[m.Auditor]) / float64(n) * 100
		}

		index := 0.40*m.AvgScore +
			0.25*(100-m.FailureRate) +
			0.20*(100-criticalFailRate) +
			0.15*(100-m.ReauditRatio)
		index = math.Min(100, math.Max(0, index))

		classification := "High Risk"
		switch {
		case index >= 90:
			classification = "Excellent"
		case index >= 75:
			classification = "Stable"
		case index >= 60:
			classification = "Watchlist"
		}

		out = append(out, AuditorHealth{
			Auditor:              m.Auditor,
			HealthIndex:          index,
			HealthClassification: classification,
			CriticalFailRate:     criticalFailRate,
		})
	}
	return out
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// sampleStdDev is the sample (n-1) standard deviation; 0 for fewer than two
// observations.
func sampleStdDev(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	m := mean(xs)
	sum := 0.0
	for _, x := range xs {
		d := x - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(xs)-1))
}

// AnalyticsService recomputes auditor analytics from a fresh read of the full
// history on every call. There is no derived-data cache to invalidate.
type AnalyticsService struct {
	storage EvaluationStore
	logger  *zap.Logger
}

func NewAnalyticsService(storage EvaluationStore, logger *zap.Logger) *AnalyticsService {
	if storage == nil {
		panic("storage must not be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnalyticsService{storage: storage, logger: logger}
}

func (s *AnalyticsService) readHistory(ctx context.Context) ([]models.SummaryRow, []models.DetailRow, error) {
	dbCtx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	summaries, err := s.storage.ReadAllSummaries(dbCtx)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}
	details, err := s.storage.ReadAllDetails(dbCtx)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}
	return summaries, details, nil
}

// AuditorIntelligence returns the per-auditor metrics table.
func (s *AnalyticsService) AuditorIntelligence(ctx context.Context) ([]AuditorMetrics, error) {
	summaries, details, err := s.readHistory(ctx)
	if err != nil {
		return nil, err
	}
	metrics := ComputeAuditorIntelligence(summaries, details)
	s.logger.Debug("auditor intelligence computed", zap.Int("auditors", len(metrics)))
	return metrics, nil
}

// RiskFlags returns the per-auditor risk table.
func (s *AnalyticsService) RiskFlags(ctx context.Context) ([]RiskFlag, error) {
	summaries, details, err := s.readHistory(ctx)
	if err != nil {
		return nil, err
	}
	return ComputeRiskFlags(ComputeAuditorIntelligence(summaries, details), details), nil
}

// HealthIndexes returns the per-auditor health table.
func (s *AnalyticsService) HealthIndexes(ctx context.Context) ([]AuditorHealth, error) {
	summaries, details, err := s.readHistory(ctx)
	if err != nil {
		return nil, err
	}
	return ComputeHealthIndex(ComputeAuditorIntelligence(summaries, details), details), nil
}
