package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/parkprofile/internal/model"
	"github.com/sells-group/parkprofile/internal/table"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	mode       TEXT NOT NULL,
	params     TEXT,
	status     TEXT NOT NULL DEFAULT 'queued',
	summary    TEXT,
	error      TEXT NOT NULL DEFAULT '',
	columns    TEXT,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS run_rows (
	run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	idx    INTEGER NOT NULL,
	data   TEXT NOT NULL,
	PRIMARY KEY (run_id, idx)
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_runs_mode ON runs(mode);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateRun(ctx context.Context, mode model.RunMode, params map[string]any) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal params")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (id, mode, params, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, string(mode), string(paramsJSON), string(model.RunStatusQueued), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
	}

	return &model.Run{
		ID:        id,
		Mode:      mode,
		Params:    params,
		Status:    model.RunStatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *SQLiteStore) UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update run status %s", runID)
	}
	return checkRowsAffected(res, runID)
}

func (s *SQLiteStore) CompleteRun(ctx context.Context, runID string, summary *model.RunSummary) error {
	summaryJSON, err := json.Marshal(summary)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal summary")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET summary = ?, status = ?, updated_at = ? WHERE id = ?`,
		string(summaryJSON), string(model.RunStatusComplete), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete run %s", runID)
	}
	return checkRowsAffected(res, runID)
}

func (s *SQLiteStore) FailRun(ctx context.Context, runID string, msg string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET error = ?, status = ?, updated_at = ? WHERE id = ?`,
		msg, string(model.RunStatusFailed), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: fail run %s", runID)
	}
	return checkRowsAffected(res, runID)
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, mode, params, status, summary, error, created_at, updated_at FROM runs WHERE id = ?`,
		runID,
	)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "sqlite: get run %s", runID)
	}
	return r, err
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT id, mode, params, status, summary, error, created_at, updated_at FROM runs WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.Mode != "" {
		query += ` AND mode = ?`
		args = append(args, string(filter.Mode))
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close() //nolint:errcheck

	var runs []model.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

// SaveRows replaces the stored rows of a run with the rows of tb.
func (s *SQLiteStore) SaveRows(ctx context.Context, runID string, tb *table.Table) (int64, error) {
	encoded, err := encodeRows(tb)
	if err != nil {
		return 0, err
	}
	colsJSON, err := json.Marshal(tb.Columns())
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: marshal columns")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin save rows")
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.ExecContext(ctx,
		`UPDATE runs SET columns = ?, updated_at = ? WHERE id = ?`,
		string(colsJSON), time.Now().UTC(), runID,
	)
	if err != nil {
		return 0, eris.Wrapf(err, "sqlite: set columns %s", runID)
	}
	if err := checkRowsAffected(res, runID); err != nil {
		return 0, err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM run_rows WHERE run_id = ?`, runID); err != nil {
		return 0, eris.Wrapf(err, "sqlite: clear rows %s", runID)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO run_rows (run_id, idx, data) VALUES (?, ?, ?)`)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare insert row")
	}
	defer stmt.Close() //nolint:errcheck

	for i, data := range encoded {
		if _, err := stmt.ExecContext(ctx, runID, i, string(data)); err != nil {
			return 0, eris.Wrapf(err, "sqlite: insert row %d", i)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit rows")
	}
	return int64(len(encoded)), nil
}

func (s *SQLiteStore) ListRows(ctx context.Context, runID string, limit, offset int) (*RowSet, error) {
	var colsJSON sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT columns FROM runs WHERE id = ?`, runID).Scan(&colsJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "sqlite: list rows %s", runID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get columns %s", runID)
	}

	set := &RowSet{Rows: [][]any{}}
	if set.Columns, err = decodeColumns([]byte(colsJSON.String)); err != nil {
		return nil, err
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM run_rows WHERE run_id = ?`, runID).Scan(&set.Total); err != nil {
		return nil, eris.Wrapf(err, "sqlite: count rows %s", runID)
	}

	if limit <= 0 {
		limit = defaultListLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT data FROM run_rows WHERE run_id = ? ORDER BY idx LIMIT ? OFFSET ?`,
		runID, limit, max(offset, 0),
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list rows %s", runID)
	}
	defer rows.Close() //nolint:errcheck

	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan row")
		}
		values, err := decodeRow([]byte(data))
		if err != nil {
			return nil, err
		}
		set.Rows = append(set.Rows, values)
	}
	return set, eris.Wrap(rows.Err(), "sqlite: list rows iterate")
}

// helpers

func checkRowsAffected(res sql.Result, runID string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "run %s", runID)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRun(row scannable) (*model.Run, error) {
	var r model.Run
	var paramsJSON, summaryJSON sql.NullString

	err := row.Scan(&r.ID, &r.Mode, &paramsJSON, &r.Status, &summaryJSON, &r.Error, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan run")
	}
	if err := decodeRunJSON(&r, []byte(paramsJSON.String), []byte(summaryJSON.String)); err != nil {
		return nil, err
	}
	return &r, nil
}
