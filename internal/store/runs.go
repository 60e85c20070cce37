package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Run is one execution of the report pipeline.
type Run struct {
	ID          string
	StartedAt   time.Time
	Source      string // chats dir or single chat file
	Output      string // report path, empty when no report was written
	RecordCount int
}

// RecordRow is one stored classified record.
type RecordRow struct {
	RunID     string
	Seq       int
	Chat      string
	Line      int
	Timestamp time.Time
	Kind      string
	Year      int
	Month     int
	Category  string
	Outcome   string
	MediaPath string
	Text      string
}

// SaveRun inserts a run and its records in one transaction and returns the
// run id (generated when empty).
func (d *DB) SaveRun(run Run, records []RecordRow) (string, error) {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}

	tx, err := d.db.Begin()
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO runs (run_id, started_at, source, output, record_count)
		 VALUES (?, ?, ?, ?, ?)`,
		run.ID,
		run.StartedAt.UTC().Format(timeLayout),
		run.Source,
		run.Output,
		len(records),
	)
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.Prepare(
		`INSERT INTO records (run_id, seq, chat, line, ts, kind, year, month, category, outcome, media_path, text)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return "", err
	}
	defer stmt.Close()

	for i, r := range records {
		_, err := stmt.Exec(
			run.ID,
			i,
			r.Chat,
			r.Line,
			r.Timestamp.Format(timeLayout),
			r.Kind,
			r.Year,
			r.Month,
			r.Category,
			r.Outcome,
			r.MediaPath,
			r.Text,
		)
		if err != nil {
			return "", fmt.Errorf("insert record %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}
	return run.ID, nil
}

// SetRunOutput records where the report for a run was written.
func (d *DB) SetRunOutput(runID, output string) error {
	_, err := d.db.Exec("UPDATE runs SET output = ? WHERE run_id = ?", output, runID)
	return err
}

// GetRun finds a run by id or unique id prefix.
func (d *DB) GetRun(idOrPrefix string) (*Run, error) {
	rows, err := d.db.Query(
		`SELECT run_id, started_at, source, output, record_count
		 FROM runs WHERE run_id LIKE ? || '%' ORDER BY started_at DESC LIMIT 2`,
		idOrPrefix,
	)
	if err != nil {
		return nil, err
	}
	runs, err := scanRuns(rows)
	if err != nil {
		return nil, err
	}
	switch {
	case len(runs) == 0:
		return nil, ErrNotFound
	case len(runs) > 1 && runs[0].ID != idOrPrefix:
		return nil, fmt.Errorf("run prefix %q is ambiguous", idOrPrefix)
	}
	return &runs[0], nil
}

// LatestRun returns the most recent run.
func (d *DB) LatestRun() (*Run, error) {
	runs, err := d.ListRuns(1)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, ErrNotFound
	}
	return &runs[0], nil
}

// ListRuns returns runs newest first.
func (d *DB) ListRuns(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := d.db.Query(
		`SELECT run_id, started_at, source, output, record_count
		 FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	return scanRuns(rows)
}

func (d *DB) DeleteRun(runID string) error {
	tx, err := d.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM records WHERE run_id = ?", runID); err != nil {
		return err
	}
	res, err := tx.Exec("DELETE FROM runs WHERE run_id = ?", runID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return tx.Commit()
}

// GetRecords returns a run's records in processing order.
func (d *DB) GetRecords(runID string) ([]RecordRow, error) {
	rows, err := d.db.Query(
		`SELECT run_id, seq, chat, line, ts, kind, year, month, category, outcome, media_path, text
		 FROM records WHERE run_id = ? ORDER BY seq`,
		runID,
	)
	if err != nil {
		return nil, err
	}
	return ScanRecords(rows)
}

func (d *DB) GetRecord(runID string, seq int) (*RecordRow, error) {
	rows, err := d.db.Query(
		`SELECT run_id, seq, chat, line, ts, kind, year, month, category, outcome, media_path, text
		 FROM records WHERE run_id = ? AND seq = ?`,
		runID, seq,
	)
	if err != nil {
		return nil, err
	}
	recs, err := ScanRecords(rows)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, ErrNotFound
	}
	return &recs[0], nil
}

// ScanRecords reads rows selected in the column order used by GetRecords and
// closes them.
func ScanRecords(rows *sql.Rows) ([]RecordRow, error) {
	defer rows.Close()

	var out []RecordRow
	for rows.Next() {
		var r RecordRow
		var ts string
		if err := rows.Scan(
			&r.RunID, &r.Seq, &r.Chat, &r.Line, &ts, &r.Kind,
			&r.Year, &r.Month, &r.Category, &r.Outcome, &r.MediaPath, &r.Text,
		); err != nil {
			return nil, err
		}
		r.Timestamp, _ = time.Parse(timeLayout, ts)
		out = append(out, r)
	}
	return out, rows.Err()
}

func scanRuns(rows *sql.Rows) ([]Run, error) {
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var started string
		if err := rows.Scan(&r.ID, &started, &r.Source, &r.Output, &r.RecordCount); err != nil {
			return nil, err
		}
		r.StartedAt, _ = time.Parse(timeLayout, started)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
