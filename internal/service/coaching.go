package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/godilite/ata-server/internal/repository"
	"github.com/godilite/ata-server/internal/repository/models"
)

// GenerateCoachingSummary renders the deterministic coaching narrative for
// one evaluation. The text depends only on the evaluation's failed rows and
// the supplied risk level, so identical inputs always produce identical
// output.
func GenerateCoachingSummary(ev *models.Evaluation, risk *RiskFlag) string {
	if ev == nil {
		return "No evaluation data available."
	}
	if len(ev.Details) == 0 {
		return "No parameter details available to generate coaching summary."
	}

	riskLevel := RiskLow
	if risk != nil && risk.RiskLevel != "" {
		riskLevel = risk.RiskLevel
	}

	followUp := "Monitor next cycle"
	switch riskLevel {
	case RiskHigh:
		followUp = "7 days"
	case RiskModerate:
		followUp = "14 days"
	}

	var riskObservation string
	switch riskLevel {
	case RiskHigh:
		riskObservation = "Elevated governance exposure detected. Immediate intervention required."
	case RiskModerate:
		riskObservation = "Moderate governance variance observed. Focused coaching required."
	default:
		riskObservation = "Performance within governance tolerance. Continue monitoring."
	}

	type failure struct{ parameter, comment string }
	var failed []failure
	for _, row := range ev.Details {
		if strings.EqualFold(strings.TrimSpace(row.Result), "fail") {
			failed = append(failed, failure{
				parameter: strings.TrimSpace(row.Parameter),
				comment:   strings.TrimSpace(row.Comment),
			})
		}
	}

	var gaps []string
	for _, f := range failed {
		if f.parameter != "" {
			gaps = append(gaps, "- "+f.parameter)
		}
	}
	governanceGaps := "- No governance gaps identified in this cycle."
	if len(gaps) > 0 {
		governanceGaps = strings.Join(gaps, "\n")
	}

	var actions []string
	seenPair := make(map[failure]bool)
	seenLine := make(map[string]bool)
	appendAction := func(line string) {
		if !seenLine[line] {
			seenLine[line] = true
			actions = append(actions, line)
		}
	}
	for _, f := range failed {
		if seenPair[f] {
			continue
		}
		seenPair[f] = true
		if f.parameter == "" {
			continue
		}
		if f.comment != "" {
			appendAction(fmt.Sprintf(
				"- For '%s', evaluation indicates: '%s'. Action: Conduct focused recalibration, reinforce governance control, and validate consistency in next two evaluations.",
				f.parameter, f.comment))
		} else {
			appendAction(fmt.Sprintf(
				"- For '%s', conduct targeted governance coaching and revalidate scoring discipline.",
				f.parameter))
		}
		if strings.ToLower(f.parameter) == CriticalErrorParameter {
			appendAction("- Immediate governance escalation required. Align with QA leadership for recalibration review.")
		}
	}
	actionPlan := "- Continue governance monitoring and sustain current control discipline."
	if len(actions) > 0 {
		actionPlan = strings.Join(actions, "\n")
	}

	return fmt.Sprintf(
		"Senior QA Governance Coaching\n"+
			"Evaluation ID: %s\n"+
			"Auditor Under Review: %s\n"+
			"Risk Level: %s\n\n"+
			"Governance Gaps\n%s\n\n"+
			"Risk Observation\n%s\n\n"+
			"Recommended Action Plan\n%s\n\n"+
			"Follow-Up Timeline\n- %s",
		ev.Summary.EvaluationID,
		ev.Summary.Auditor,
		riskLevel,
		governanceGaps,
		riskObservation,
		actionPlan,
		followUp,
	)
}

// CoachingSummary loads one evaluation, derives its auditor's current risk
// flag from the same snapshot of the history, and renders the narrative.
func (s *AnalyticsService) CoachingSummary(ctx context.Context, evaluationID string) (string, error) {
	rid := repository.NormID(evaluationID)
	if rid == "" {
		return "", fmt.Errorf("%w: missing evaluation id", ErrInvalidEvaluation)
	}

	summaries, details, err := s.readHistory(ctx)
	if err != nil {
		return "", err
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
		return "", fmt.Errorf("%w: %s", ErrNotFound, rid)
	}
	for _, row := range details {
		if repository.NormID(row.EvaluationID) == rid {
			ev.Details = append(ev.Details, row)
		}
	}

	flags := ComputeRiskFlags(ComputeAuditorIntelligence(summaries, details), details)
	var risk *RiskFlag
	name := auditorName(ev.Summary.Auditor)
	for i := range flags {
		if flags[i].Auditor == name {
			risk = &flags[i]
			break
		}
	}
	return GenerateCoachingSummary(&ev, risk), nil
}
