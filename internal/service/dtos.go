package service

// ScoreResult is the outcome of scoring one evaluation's detail rows.
type ScoreResult struct {
	Score        float64
	PassedPoints int
	FailedPoints int
	TotalPoints  int
}

// DetailInput is one rubric parameter outcome submitted with an evaluation.
type DetailInput struct {
	Group       string
	Parameter   string
	Points      int
	Description string
	Result      string
	Comment     string
}

// EvaluationInput carries everything a QA user submits for one evaluation.
// The score fields are always recomputed server-side, never trusted.
type EvaluationInput struct {
	EvaluationDate  string
	AuditDate       string
	Reaudit         string
	QAName          string
	Auditor         string
	CallID          string
	CallDuration    string
	CallDisposition string
	Details         []DetailInput
}

// AuditorMetrics is one auditor's aggregate performance, recomputed from the
// full evaluation history on every request.
type AuditorMetrics struct {
	Auditor            string  `json:"auditor"`
	AvgScore           float64 `json:"avg_score"`
	FailureRate        float64 `json:"failure_rate"`
	ReauditRatio       float64 `json:"reaudit_ratio"`
	Volatility         float64 `json:"volatility"`
	RepeatFailureCount int     `json:"repeat_failure_count"`
}

// RiskFlag is the risk classification derived from AuditorMetrics.
type RiskFlag struct {
	Auditor                string `json:"auditor"`
	RiskPoints             int    `json:"risk_points"`
	RiskLevel              string `json:"risk_level"`
	QAInterventionRequired bool   `json:"qa_intervention_required"`
	CoachingRequired       bool   `json:"coaching_required"`
}

// AuditorHealth is the composite health index for one auditor.
type AuditorHealth struct {
	Auditor              string  `json:"auditor"`
	HealthIndex          float64 `json:"health_index"`
	HealthClassification string  `json:"health_classification"`
	CriticalFailRate     float64 `json:"critical_fail_rate"`
}

// PeriodValue is a (label, value) pair for trend-style aggregates.
type PeriodValue struct {
	Period string  `json:"period"`
	Value  float64 `json:"value"`
}

// PeriodCount is a (label, count) pair for volume-style aggregates.
type PeriodCount struct {
	Period string `json:"period"`
	Count  int    `json:"count"`
}

// Dashboard bundles the aggregates behind the reporting views. Values are
// data only; chart rendering happens downstream.
type Dashboard struct {
	FailureRateTrend  []PeriodValue `json:"failure_rate_trend"`  // mean per-evaluation failure rate % by month
	ParameterFailures []PeriodCount `json:"parameter_failures"`  // failure count per rubric parameter
	QALeaderboard     []PeriodValue `json:"qa_leaderboard"`      // mean overall score % per QA name
	ScoreByDate       []PeriodValue `json:"score_by_date"`       // mean overall score % per evaluation date
	AuditVolume       []PeriodCount `json:"audit_volume"`        // evaluations per evaluation date
}
