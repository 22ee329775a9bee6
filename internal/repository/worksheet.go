package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// Worksheet names inside the audit log store.
const (
	SheetSummary = "Summary"
	SheetDetails = "Details"
)

// Sheets is the minimal surface of a spreadsheet-like table store: read every
// row, or replace the whole sheet. There is no partial-row update, matching
// the remote-worksheet model the audit log was designed around.
type Sheets interface {
	Records(ctx context.Context, sheet string) (header []string, rows [][]string, err error)
	Rewrite(ctx context.Context, sheet string, header []string, rows [][]string) error
}

// SheetStore keeps worksheets in SQLite, one JSON-encoded row per record.
// Row 0 is the header. Each Rewrite replaces a single sheet atomically, but
// there is deliberately no transaction spanning two sheets.
type SheetStore struct {
	db *sql.DB
}

func NewSheetStore(db *sql.DB) *SheetStore {
	return &SheetStore{db: db}
}

// EnsureSchema creates the backing table if missing.
func (s *SheetStore) EnsureSchema(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS worksheet_rows (
		sheet   TEXT    NOT NULL,
		row_idx INTEGER NOT NULL,
		cells   TEXT    NOT NULL,
		PRIMARY KEY (sheet, row_idx)
	);`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure worksheet schema: %w", err)
	}
	return nil
}

// Records returns the sheet header and all data rows in stored order. An
// absent or empty sheet yields a nil header and no rows, not an error.
func (s *SheetStore) Records(ctx context.Context, sheet string) ([]string, [][]string, error) {
	const query = `
		SELECT cells FROM worksheet_rows
		WHERE sheet = ?
		ORDER BY row_idx`

	dbRows, err := s.db.QueryContext(ctx, query, sheet)
	if err != nil {
		return nil, nil, fmt.Errorf("query worksheet %s: %w", sheet, err)
	}
	defer dbRows.Close()

	var all [][]string
	for dbRows.Next() {
		var raw string
		if err := dbRows.Scan(&raw); err != nil {
			return nil, nil, fmt.Errorf("scan worksheet %s row: %w", sheet, err)
		}
		var cells []string
		if err := json.Unmarshal([]byte(raw), &cells); err != nil {
			return nil, nil, fmt.Errorf("decode worksheet %s row: %w", sheet, err)
		}
		all = append(all, cells)
	}
	if err := dbRows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate worksheet %s: %w", sheet, err)
	}

	if len(all) == 0 {
		return nil, nil, nil
	}
	return all[0], all[1:], nil
}

// Rewrite clears the sheet and writes header plus rows back in full.
func (s *SheetStore) Rewrite(ctx context.Context, sheet string, header []string, rows [][]string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin rewrite of %s: %w", sheet, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM worksheet_rows WHERE sheet = ?`, sheet); err != nil {
		return fmt.Errorf("clear worksheet %s: %w", sheet, err)
	}

	const insert = `INSERT INTO worksheet_rows (sheet, row_idx, cells) VALUES (?, ?, ?)`
	write := func(idx int, cells []string) error {
		raw, err := json.Marshal(cells)
		if err != nil {
			return fmt.Errorf("encode worksheet %s row: %w", sheet, err)
		}
		if _, err := tx.ExecContext(ctx, insert, sheet, idx, string(raw)); err != nil {
			return fmt.Errorf("append worksheet %s row: %w", sheet, err)
		}
		return nil
	}

	if err := write(0, header); err != nil {
		return err
	}
	for i, row := range rows {
		if err := write(i+1, row); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit rewrite of %s: %w", sheet, err)
	}
	return nil
}
