// Package store persists profiling runs and their output rows.
package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/parkprofile/internal/model"
	"github.com/sells-group/parkprofile/internal/table"
)

// ErrNotFound is returned when a run does not exist.
var ErrNotFound = eris.New("store: not found")

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status model.RunStatus `json:"status,omitempty"`
	Mode   model.RunMode   `json:"mode,omitempty"`
	Limit  int             `json:"limit,omitempty"`
	Offset int             `json:"offset,omitempty"`
}

// RowSet is a page of stored output rows.
type RowSet struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
	Total   int      `json:"total"`
}

// Store defines the persistence interface for profiling runs.
type Store interface {
	// Runs
	CreateRun(ctx context.Context, mode model.RunMode, params map[string]any) (*model.Run, error)
	UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error
	CompleteRun(ctx context.Context, runID string, summary *model.RunSummary) error
	FailRun(ctx context.Context, runID string, msg string) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	// Rows
	SaveRows(ctx context.Context, runID string, tb *table.Table) (int64, error)
	ListRows(ctx context.Context, runID string, limit, offset int) (*RowSet, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Open returns the store for driver. SQLite paths get their parent
// directory created.
func Open(ctx context.Context, driver, dsn string, poolCfg *PoolConfig) (Store, error) {
	switch driver {
	case "", "sqlite":
		if dsn == "" {
			dsn = "parkprofile.db"
		}
		if dir := filepath.Dir(dsn); dir != "." && !strings.HasPrefix(dsn, "file:") {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, eris.Wrapf(err, "store: create %s", dir)
			}
		}
		return NewSQLite(dsn)
	case "postgres":
		return NewPostgres(ctx, dsn, poolCfg)
	default:
		return nil, eris.Errorf("store: unsupported driver %q", driver)
	}
}

const defaultListLimit = 100

// encodeRows renders each table row as a JSON array aligned with the
// table's columns.
func encodeRows(tb *table.Table) ([][]byte, error) {
	cols := tb.Columns()
	out := make([][]byte, 0, tb.Len())
	values := make([]any, len(cols))
	for _, r := range tb.Rows() {
		for i, c := range cols {
			values[i] = r.Get(c)
		}
		b, err := json.Marshal(values)
		if err != nil {
			return nil, eris.Wrapf(err, "store: encode row %d", r.Key)
		}
		out = append(out, b)
	}
	return out, nil
}

func decodeRow(data []byte) ([]any, error) {
	var values []any
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, eris.Wrap(err, "store: decode row")
	}
	return values, nil
}

func decodeColumns(data []byte) ([]string, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var cols []string
	if err := json.Unmarshal(data, &cols); err != nil {
		return nil, eris.Wrap(err, "store: decode columns")
	}
	return cols, nil
}

func decodeRunJSON(r *model.Run, params, summary []byte) error {
	if len(params) > 0 {
		if err := json.Unmarshal(params, &r.Params); err != nil {
			return eris.Wrap(err, "store: unmarshal params")
		}
	}
	if len(summary) > 0 && string(summary) != "null" {
		r.Summary = &model.RunSummary{}
		if err := json.Unmarshal(summary, r.Summary); err != nil {
			return eris.Wrap(err, "store: unmarshal summary")
		}
	}
	return nil
}
