package models

// SummaryRow is one row of the Summary worksheet: the headline result of a
// single evaluation. Dates are kept as the YYYY-MM-DD strings the sheet
// stores; parsing happens where arithmetic is needed.
type SummaryRow struct {
	EvaluationID    string
	EvaluationDate  string
	AuditDate       string
	Reaudit         string
	QAName          string
	Auditor         string
	CallID          string
	CallDuration    string
	CallDisposition string
	OverallScore    float64
	PassedPoints    float64
	FailedPoints    float64
	TotalPoints     float64
	LastUpdated     string
}

// DetailRow is one parameter outcome within one evaluation. The evaluation
// header fields are denormalized onto every row, mirroring the sheet layout.
type DetailRow struct {
	EvaluationID   string
	EvaluationDate string
	AuditDate      string
	Reaudit        string
	QAName         string
	Auditor        string
	CallID         string
	OverallScore   float64
	Group          string
	Parameter      string
	Points         int
	Description    string
	Result         string
	Comment        string
}

// Evaluation bundles the summary row with its ordered detail rows. Upserts
// replace the whole bundle; there is no partial-field update.
type Evaluation struct {
	Summary SummaryRow
	Details []DetailRow
}
