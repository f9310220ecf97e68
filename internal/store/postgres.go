package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/parkprofile/internal/db"
	"github.com/sells-group/parkprofile/internal/model"
	"github.com/sells-group/parkprofile/internal/resilience"
	"github.com/sells-group/parkprofile/internal/table"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection.
var preparedStatements = map[string]string{
	"insert_run":        `INSERT INTO runs (id, mode, params, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6)`,
	"update_run_status": `UPDATE runs SET status = $1, updated_at = $2 WHERE id = $3`,
	"get_run":           `SELECT id, mode, params, status, summary, error, created_at, updated_at FROM runs WHERE id = $1`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	retry := resilience.DefaultRetryConfig()
	retry.OnRetry = resilience.RetryLogger("store.postgres", "ping")
	if err := resilience.Do(ctx, retry, pool.Ping); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	mode       TEXT NOT NULL,
	params     JSONB,
	status     TEXT NOT NULL DEFAULT 'queued',
	summary    JSONB,
	error      TEXT NOT NULL DEFAULT '',
	columns    JSONB,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS run_rows (
	run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	idx    INTEGER NOT NULL,
	data   JSONB NOT NULL,
	PRIMARY KEY (run_id, idx)
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_runs_mode ON runs(mode);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreateRun(ctx context.Context, mode model.RunMode, params map[string]any) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal params")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO runs (id, mode, params, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		id, string(mode), paramsJSON, string(model.RunStatusQueued), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
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

func (s *PostgresStore) UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET status = $1, updated_at = $2 WHERE id = $3`,
		string(status), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update run status %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "run %s", runID)
	}
	return nil
}

func (s *PostgresStore) CompleteRun(ctx context.Context, runID string, summary *model.RunSummary) error {
	summaryJSON, err := json.Marshal(summary)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal summary")
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET summary = $1, status = $2, updated_at = $3 WHERE id = $4`,
		summaryJSON, string(model.RunStatusComplete), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "run %s", runID)
	}
	return nil
}

func (s *PostgresStore) FailRun(ctx context.Context, runID string, msg string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET error = $1, status = $2, updated_at = $3 WHERE id = $4`,
		msg, string(model.RunStatusFailed), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: fail run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "run %s", runID)
	}
	return nil
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, mode, params, status, summary, error, created_at, updated_at FROM runs WHERE id = $1`,
		runID,
	)
	r, err := scanPgRun(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "postgres: get run %s", runID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get run %s", runID)
	}
	return r, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT id, mode, params, status, summary, error, created_at, updated_at FROM runs WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	if filter.Mode != "" {
		query += fmt.Sprintf(` AND mode = $%d`, argIdx)
		args = append(args, string(filter.Mode))
		argIdx++
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		r, err := scanPgRun(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

// SaveRows upserts the rows of tb and drops any stored rows beyond its
// length.
func (s *PostgresStore) SaveRows(ctx context.Context, runID string, tb *table.Table) (int64, error) {
	encoded, err := encodeRows(tb)
	if err != nil {
		return 0, err
	}
	colsJSON, err := json.Marshal(tb.Columns())
	if err != nil {
		return 0, eris.Wrap(err, "postgres: marshal columns")
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET columns = $1, updated_at = $2 WHERE id = $3`,
		colsJSON, time.Now().UTC(), runID,
	)
	if err != nil {
		return 0, eris.Wrapf(err, "postgres: set columns %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return 0, eris.Wrapf(ErrNotFound, "run %s", runID)
	}

	if _, err := s.pool.Exec(ctx, `DELETE FROM run_rows WHERE run_id = $1 AND idx >= $2`, runID, len(encoded)); err != nil {
		return 0, eris.Wrapf(err, "postgres: trim rows %s", runID)
	}

	rows := make([][]any, len(encoded))
	for i, data := range encoded {
		rows[i] = []any{runID, i, data}
	}
	n, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "run_rows",
		Columns:      []string{"run_id", "idx", "data"},
		ConflictKeys: []string{"run_id", "idx"},
	}, rows)
	if err != nil {
		return 0, eris.Wrapf(err, "postgres: save rows %s", runID)
	}
	return n, nil
}

func (s *PostgresStore) ListRows(ctx context.Context, runID string, limit, offset int) (*RowSet, error) {
	var colsJSON []byte
	err := s.pool.QueryRow(ctx, `SELECT columns FROM runs WHERE id = $1`, runID).Scan(&colsJSON)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "postgres: list rows %s", runID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get columns %s", runID)
	}

	set := &RowSet{Rows: [][]any{}}
	if set.Columns, err = decodeColumns(colsJSON); err != nil {
		return nil, err
	}
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM run_rows WHERE run_id = $1`, runID).Scan(&set.Total); err != nil {
		return nil, eris.Wrapf(err, "postgres: count rows %s", runID)
	}

	if limit <= 0 {
		limit = defaultListLimit
	}
	rows, err := s.pool.Query(ctx,
		`SELECT data FROM run_rows WHERE run_id = $1 ORDER BY idx LIMIT $2 OFFSET $3`,
		runID, limit, max(offset, 0),
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list rows %s", runID)
	}
	defer rows.Close()

	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, eris.Wrap(err, "postgres: scan row")
		}
		values, err := decodeRow(data)
		if err != nil {
			return nil, err
		}
		set.Rows = append(set.Rows, values)
	}
	return set, eris.Wrap(rows.Err(), "postgres: list rows iterate")
}

func scanPgRun(row pgx.Row) (*model.Run, error) {
	var r model.Run
	var paramsJSON, summaryJSON []byte

	if err := row.Scan(&r.ID, &r.Mode, &paramsJSON, &r.Status, &summaryJSON, &r.Error, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	if err := decodeRunJSON(&r, paramsJSON, summaryJSON); err != nil {
		return nil, err
	}
	return &r, nil
}
