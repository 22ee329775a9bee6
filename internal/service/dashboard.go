package service

import (
	"context"
	"sort"
	"strings"

	"github.com/godilite/ata-server/internal/repository/models"
)

// BuildDashboard computes the reporting aggregates from the full history.
// All sections degrade to empty slices on empty input.
func BuildDashboard(summaries []models.SummaryRow, details []models.DetailRow) Dashboard {
	d := Dashboard{
		FailureRateTrend:  []PeriodValue{},
		ParameterFailures: []PeriodCount{},
		QALeaderboard:     []PeriodValue{},
		ScoreByDate:       []PeriodValue{},
		AuditVolume:       []PeriodCount{},
	}

	trend := make(map[string]*stat)
	qa := make(map[string]*stat)
	byDate := make(map[string]*stat)
	volume := make(map[string]int)

	add := func(m map[string]*stat, key string, v float64) {
		s := m[key]
		if s == nil {
			s = &stat{}
			m[key] = s
		}
		s.sum += v
		s.count++
	}

	for _, row := range summaries {
		t, ok := parseSheetDate(row.EvaluationDate)
		if ok {
			date := t.Format("2006-01-02")
			month := t.Format("2006-01")

			failureRate := 0.0
			if row.TotalPoints > 0 {
				failureRate = row.FailedPoints / row.TotalPoints * 100
			}
			add(trend, month, failureRate)
			add(byDate, date, row.OverallScore)
			volume[date]++
		}

		if name := strings.TrimSpace(row.QAName); name != "" {
			add(qa, name, row.OverallScore)
		}
	}

	failures := make(map[string]int)
	for _, row := range details {
		if !strings.EqualFold(strings.TrimSpace(row.Result), "fail") {
			continue
		}
		if param := strings.TrimSpace(row.Parameter); param != "" {
			failures[param]++
		}
	}

	d.FailureRateTrend = meansSortedByKey(trend)
	d.ScoreByDate = meansSortedByKey(byDate)

	for date, n := range volume {
		d.AuditVolume = append(d.AuditVolume, PeriodCount{Period: date, Count: n})
	}
	sort.Slice(d.AuditVolume, func(i, j int) bool { return d.AuditVolume[i].Period < d.AuditVolume[j].Period })

	for name, s := range qa {
		d.QALeaderboard = append(d.QALeaderboard, PeriodValue{Period: name, Value: s.sum / float64(s.count)})
	}
	// Leaderboard: best score first, name as tiebreak.
	sort.Slice(d.QALeaderboard, func(i, j int) bool {
		if d.QALeaderboard[i].Value != d.QALeaderboard[j].Value {
			return d.QALeaderboard[i].Value > d.QALeaderboard[j].Value
		}
		return d.QALeaderboard[i].Period < d.QALeaderboard[j].Period
	})

	for param, n := range failures {
		d.ParameterFailures = append(d.ParameterFailures, PeriodCount{Period: param, Count: n})
	}
	sort.Slice(d.ParameterFailures, func(i, j int) bool {
		if d.ParameterFailures[i].Count != d.ParameterFailures[j].Count {
			return d.ParameterFailures[i].Count > d.ParameterFailures[j].Count
		}
		return d.ParameterFailures[i].Period < d.ParameterFailures[j].Period
	})

	return d
}

type stat struct {
	sum   float64
	count int
}

func meansSortedByKey(m map[string]*stat) []PeriodValue {
	out := make([]PeriodValue, 0, len(m))
	for k, s := range m {
		out = append(out, PeriodValue{Period: k, Value: s.sum / float64(s.count)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Period < out[j].Period })
	return out
}

// Dashboard assembles the aggregates from a fresh read of the audit log.
func (s *AnalyticsService) Dashboard(ctx context.Context) (Dashboard, error) {
	summaries, details, err := s.readHistory(ctx)
	if err != nil {
		return Dashboard{}, err
	}
	return BuildDashboard(summaries, details), nil
}
