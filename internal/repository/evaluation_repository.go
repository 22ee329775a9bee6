package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/godilite/ata-server/internal/repository/models"
)

// ErrInvalidEvaluationID is returned when an upsert is attempted with an ID
// that normalizes to the empty string. Nothing is written in that case.
var ErrInvalidEvaluationID = errors.New("invalid evaluation id")

// Column order is significant: exports and the rewrite protocol both depend
// on it, so it must not be reordered.
var SummaryColumns = []string{
	"Evaluation ID",
	"Evaluation Date",
	"Audit Date",
	"Reaudit",
	"QA Name",
	"Auditor",
	"Call ID",
	"Call Duration",
	"Call Disposition",
	"Overall Score %",
	"Passed Points",
	"Failed Points",
	"Total Points",
	"Last Updated",
}

var DetailsColumns = []string{
	"Evaluation ID",
	"Evaluation Date",
	"Audit Date",
	"Reaudit",
	"QA Name",
	"Auditor",
	"Call ID",
	"Overall Score %",
	"Group",
	"Parameter",
	"Points",
	"Description",
	"Result",
	"Comment",
}

// EvaluationRepository adapts the two audit-log worksheets to typed rows and
// implements the upsert/delete protocol. Every operation reads the sheets
// fresh; nothing is cached between calls, so interleaved writers cannot see
// stale duplicates survive a rewrite.
type EvaluationRepository struct {
	sheets Sheets
	now    func() time.Time
}

func NewEvaluationRepository(sheets Sheets) *EvaluationRepository {
	return &EvaluationRepository{sheets: sheets, now: time.Now}
}

// NormID canonicalizes an evaluation ID for matching: trimmed, with the
// spreadsheet artifacts "nan"/"none" (any case) and empty treated as absent.
// An absent ID never matches anything.
func NormID(s string) string {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "nan", "none":
		return ""
	}
	return s
}

func normColName(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "_", " ")
}

// standardize reshapes raw sheet rows onto the expected column order.
// Header matching is case/space/underscore-insensitive; expected columns
// missing from the sheet come back as empty strings.
func standardize(header []string, rows [][]string, expected []string) [][]string {
	index := make(map[string]int, len(header))
	for i, col := range header {
		index[normColName(col)] = i
	}

	out := make([][]string, len(rows))
	for ri, row := range rows {
		cells := make([]string, len(expected))
		for ci, col := range expected {
			src, ok := index[normColName(col)]
			if ok && src < len(row) {
				cells[ci] = row[src]
			}
		}
		out[ri] = cells
	}
	return out
}

func colIndex(expected []string, name string) int {
	for i, col := range expected {
		if col == name {
			return i
		}
	}
	return -1
}

// floatOrZero degrades unparseable numerics to 0 so dirty historical rows
// never break reads.
func floatOrZero(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return v
}

func intOrZero(s string) int {
	return int(floatOrZero(s))
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func (r *EvaluationRepository) readSheet(ctx context.Context, sheet string, expected []string) ([][]string, error) {
	header, rows, err := r.sheets.Records(ctx, sheet)
	if err != nil {
		return nil, err
	}
	return standardize(header, rows, expected), nil
}

// ReadAllSummaries returns every Summary row, standardized and coerced.
func (r *EvaluationRepository) ReadAllSummaries(ctx context.Context) ([]models.SummaryRow, error) {
	rows, err := r.readSheet(ctx, SheetSummary, SummaryColumns)
	if err != nil {
		return nil, fmt.Errorf("read summaries: %w", err)
	}

	out := make([]models.SummaryRow, 0, len(rows))
	for _, c := range rows {
		out = append(out, models.SummaryRow{
			EvaluationID:    strings.TrimSpace(c[0]),
			EvaluationDate:  c[1],
			AuditDate:       c[2],
			Reaudit:         c[3],
			QAName:          c[4],
			Auditor:         c[5],
			CallID:          c[6],
			CallDuration:    c[7],
			CallDisposition: c[8],
			OverallScore:    floatOrZero(c[9]),
			PassedPoints:    floatOrZero(c[10]),
			FailedPoints:    floatOrZero(c[11]),
			TotalPoints:     floatOrZero(c[12]),
			LastUpdated:     c[13],
		})
	}
	return out, nil
}

// ReadAllDetails returns every Details row, standardized and coerced.
func (r *EvaluationRepository) ReadAllDetails(ctx context.Context) ([]models.DetailRow, error) {
	rows, err := r.readSheet(ctx, SheetDetails, DetailsColumns)
	if err != nil {
		return nil, fmt.Errorf("read details: %w", err)
	}

	out := make([]models.DetailRow, 0, len(rows))
	for _, c := range rows {
		out = append(out, models.DetailRow{
			EvaluationID:   strings.TrimSpace(c[0]),
			EvaluationDate: c[1],
			AuditDate:      c[2],
			Reaudit:        c[3],
			QAName:         c[4],
			Auditor:        c[5],
			CallID:         c[6],
			OverallScore:   floatOrZero(c[7]),
			Group:          c[8],
			Parameter:      c[9],
			Points:         intOrZero(c[10]),
			Description:    c[11],
			Result:         c[12],
			Comment:        c[13],
		})
	}
	return out, nil
}

func summaryCells(s models.SummaryRow) []string {
	return []string{
		s.EvaluationID,
		s.EvaluationDate,
		s.AuditDate,
		s.Reaudit,
		s.QAName,
		s.Auditor,
		s.CallID,
		s.CallDuration,
		s.CallDisposition,
		formatFloat(s.OverallScore),
		formatFloat(s.PassedPoints),
		formatFloat(s.FailedPoints),
		formatFloat(s.TotalPoints),
		s.LastUpdated,
	}
}

func detailCells(s models.SummaryRow, d models.DetailRow) []string {
	// Header fields are denormalized from the summary so a detail row can
	// never disagree with its evaluation header.
	return []string{
		s.EvaluationID,
		s.EvaluationDate,
		s.AuditDate,
		s.Reaudit,
		s.QAName,
		s.Auditor,
		s.CallID,
		formatFloat(s.OverallScore),
		d.Group,
		d.Parameter,
		strconv.Itoa(d.Points),
		d.Description,
		d.Result,
		d.Comment,
	}
}

// Upsert replaces every row carrying the evaluation's ID in both sheets with
// the supplied record, using the read-fresh / filter / append / dedupe /
// rewrite protocol. The two sheet rewrites are not one transaction; a crash
// between them leaves Summary and Details inconsistent, which is an accepted
// limitation of the worksheet model.
func (r *EvaluationRepository) Upsert(ctx context.Context, ev models.Evaluation) error {
	rid := NormID(ev.Summary.EvaluationID)
	if rid == "" {
		return fmt.Errorf("%w: %q", ErrInvalidEvaluationID, ev.Summary.EvaluationID)
	}

	summaryRows, err := r.readSheet(ctx, SheetSummary, SummaryColumns)
	if err != nil {
		return fmt.Errorf("upsert %s: %w", rid, err)
	}
	detailRows, err := r.readSheet(ctx, SheetDetails, DetailsColumns)
	if err != nil {
		return fmt.Errorf("upsert %s: %w", rid, err)
	}

	summaryRows = filterOutID(summaryRows, 0, rid)
	detailRows = filterOutID(detailRows, 0, rid)

	summary := ev.Summary
	summary.EvaluationID = rid
	summary.LastUpdated = r.now().Format("2006-01-02 15:04:05")

	summaryRows = append(summaryRows, summaryCells(summary))
	for _, d := range ev.Details {
		detailRows = append(detailRows, detailCells(summary, d))
	}

	// Race protection: if a concurrent upsert appended between our read and
	// this write, keep only the latest row(s) per key.
	summaryRows = dedupeKeepLast(summaryRows, []int{0})
	detailRows = dedupeKeepLast(detailRows, []int{
		0,
		colIndex(DetailsColumns, "Group"),
		colIndex(DetailsColumns, "Parameter"),
	})

	if err := r.sheets.Rewrite(ctx, SheetSummary, SummaryColumns, summaryRows); err != nil {
		return fmt.Errorf("upsert %s: rewrite summary: %w", rid, err)
	}
	if err := r.sheets.Rewrite(ctx, SheetDetails, DetailsColumns, detailRows); err != nil {
		return fmt.Errorf("upsert %s: rewrite details: %w", rid, err)
	}
	return nil
}

// Delete removes every row matching the normalized ID from both sheets and
// reports whether anything was actually removed. Unknown IDs are a no-op.
func (r *EvaluationRepository) Delete(ctx context.Context, evaluationID string) (bool, error) {
	rid := NormID(evaluationID)
	if rid == "" {
		return false, nil
	}

	summaryRows, err := r.readSheet(ctx, SheetSummary, SummaryColumns)
	if err != nil {
		return false, fmt.Errorf("delete %s: %w", rid, err)
	}
	detailRows, err := r.readSheet(ctx, SheetDetails, DetailsColumns)
	if err != nil {
		return false, fmt.Errorf("delete %s: %w", rid, err)
	}

	keptSummary := filterOutNormID(summaryRows, 0, rid)
	keptDetails := filterOutNormID(detailRows, 0, rid)

	if len(keptSummary) == len(summaryRows) && len(keptDetails) == len(detailRows) {
		return false, nil
	}

	if err := r.sheets.Rewrite(ctx, SheetSummary, SummaryColumns, keptSummary); err != nil {
		return false, fmt.Errorf("delete %s: rewrite summary: %w", rid, err)
	}
	if err := r.sheets.Rewrite(ctx, SheetDetails, DetailsColumns, keptDetails); err != nil {
		return false, fmt.Errorf("delete %s: rewrite details: %w", rid, err)
	}
	return true, nil
}

func filterOutID(rows [][]string, idCol int, rid string) [][]string {
	kept := rows[:0:0]
	for _, row := range rows {
		if strings.TrimSpace(row[idCol]) != rid {
			kept = append(kept, row)
		}
	}
	return kept
}

func filterOutNormID(rows [][]string, idCol int, rid string) [][]string {
	kept := rows[:0:0]
	for _, row := range rows {
		if NormID(row[idCol]) != rid {
			kept = append(kept, row)
		}
	}
	return kept
}

// dedupeKeepLast drops duplicate rows by the given key columns, keeping the
// last occurrence, and preserves first-seen order like a stable de-dup.
func dedupeKeepLast(rows [][]string, keyCols []int) [][]string {
	type slot struct {
		order int
		row   []string
	}
	seen := make(map[string]*slot, len(rows))
	order := 0
	for _, row := range rows {
		parts := make([]string, len(keyCols))
		for i, c := range keyCols {
			parts[i] = strings.TrimSpace(row[c])
		}
		key := strings.Join(parts, "\x1f")
		if s, ok := seen[key]; ok {
			s.row = row
			continue
		}
		seen[key] = &slot{order: order, row: row}
		order++
	}

	out := make([][]string, order)
	for _, s := range seen {
		out[s.order] = s.row
	}
	return out
}
