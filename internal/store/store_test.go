package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/parkprofile/internal/model"
	"github.com/sells-group/parkprofile/internal/table"
)

func newTestSQLite(t *testing.T) Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() }) //nolint:errcheck
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func profileTable() *table.Table {
	tb := table.New("ID", "POP_500", "HAB_DIV_500")
	for i, id := range []string{"Kedougou", "Saraya", "Bandafassi"} {
		r := table.NewRow(i)
		r.Set("ID", id)
		r.Set("POP_500", float64(100*(i+1)))
		if i != 1 {
			r.Set("HAB_DIV_500", i+2)
		}
		tb.Append(r)
	}
	return tb
}

func storeTestSuite(t *testing.T, newStore func(t *testing.T) Store) {
	t.Run("CreateAndGetRun", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		params := map[string]any{"villages": "/data/villages.shp", "buffers": []any{500.0, 2000.0}}
		run, err := s.CreateRun(ctx, model.RunModeVillages, params)
		require.NoError(t, err)
		assert.NotEmpty(t, run.ID)
		assert.Equal(t, model.RunStatusQueued, run.Status)

		got, err := s.GetRun(ctx, run.ID)
		require.NoError(t, err)
		assert.Equal(t, run.ID, got.ID)
		assert.Equal(t, model.RunModeVillages, got.Mode)
		assert.Equal(t, model.RunStatusQueued, got.Status)
		assert.Equal(t, params, got.Params)
		assert.Nil(t, got.Summary)
	})

	t.Run("GetRunNotFound", func(t *testing.T) {
		s := newStore(t)
		_, err := s.GetRun(context.Background(), "nonexistent-id")
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrNotFound))
	})

	t.Run("UpdateRunStatus", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		run, err := s.CreateRun(ctx, model.RunModeCountries, nil)
		require.NoError(t, err)
		require.NoError(t, s.UpdateRunStatus(ctx, run.ID, model.RunStatusProfiling))

		got, err := s.GetRun(ctx, run.ID)
		require.NoError(t, err)
		assert.Equal(t, model.RunStatusProfiling, got.Status)
	})

	t.Run("UpdateRunStatusNotFound", func(t *testing.T) {
		s := newStore(t)
		err := s.UpdateRunStatus(context.Background(), "nonexistent-id", model.RunStatusProfiling)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrNotFound))
	})

	t.Run("CompleteRun", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		run, err := s.CreateRun(ctx, model.RunModeVillages, nil)
		require.NoError(t, err)

		summary := &model.RunSummary{
			Rows:          3,
			Entities:      3,
			Nulled:        2,
			NulledByLayer: map[string]int{"landuse": 2},
			UnknownCodes:  map[string]int{"landuse": 1},
			OutputPath:    "/tmp/villages_profiles.xlsx",
			DurationMs:    1200,
		}
		require.NoError(t, s.CompleteRun(ctx, run.ID, summary))

		got, err := s.GetRun(ctx, run.ID)
		require.NoError(t, err)
		assert.Equal(t, model.RunStatusComplete, got.Status)
		require.NotNil(t, got.Summary)
		assert.Equal(t, *summary, *got.Summary)
	})

	t.Run("FailRun", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		run, err := s.CreateRun(ctx, model.RunModeCountries, nil)
		require.NoError(t, err)
		require.NoError(t, s.FailRun(ctx, run.ID, "read aoi: no such file"))

		got, err := s.GetRun(ctx, run.ID)
		require.NoError(t, err)
		assert.Equal(t, model.RunStatusFailed, got.Status)
		assert.Equal(t, "read aoi: no such file", got.Error)
		assert.True(t, got.Status.IsTerminal())
	})

	t.Run("ListRunsFilters", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		v1, err := s.CreateRun(ctx, model.RunModeVillages, nil)
		require.NoError(t, err)
		_, err = s.CreateRun(ctx, model.RunModeVillages, nil)
		require.NoError(t, err)
		_, err = s.CreateRun(ctx, model.RunModeCountries, nil)
		require.NoError(t, err)
		require.NoError(t, s.CompleteRun(ctx, v1.ID, &model.RunSummary{}))

		all, err := s.ListRuns(ctx, RunFilter{})
		require.NoError(t, err)
		assert.Len(t, all, 3)

		villages, err := s.ListRuns(ctx, RunFilter{Mode: model.RunModeVillages})
		require.NoError(t, err)
		assert.Len(t, villages, 2)

		complete, err := s.ListRuns(ctx, RunFilter{Status: model.RunStatusComplete})
		require.NoError(t, err)
		require.Len(t, complete, 1)
		assert.Equal(t, v1.ID, complete[0].ID)

		limited, err := s.ListRuns(ctx, RunFilter{Limit: 2})
		require.NoError(t, err)
		assert.Len(t, limited, 2)

		rest, err := s.ListRuns(ctx, RunFilter{Limit: 2, Offset: 2})
		require.NoError(t, err)
		assert.Len(t, rest, 1)
	})

	t.Run("SaveAndListRows", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		run, err := s.CreateRun(ctx, model.RunModeVillages, nil)
		require.NoError(t, err)

		n, err := s.SaveRows(ctx, run.ID, profileTable())
		require.NoError(t, err)
		assert.Equal(t, int64(3), n)

		set, err := s.ListRows(ctx, run.ID, 0, 0)
		require.NoError(t, err)
		assert.Equal(t, []string{"ID", "POP_500", "HAB_DIV_500"}, set.Columns)
		assert.Equal(t, 3, set.Total)
		require.Len(t, set.Rows, 3)
		assert.Equal(t, []any{"Kedougou", 100.0, 2.0}, set.Rows[0])
		assert.Equal(t, []any{"Saraya", 200.0, nil}, set.Rows[1])

		page, err := s.ListRows(ctx, run.ID, 1, 2)
		require.NoError(t, err)
		require.Len(t, page.Rows, 1)
		assert.Equal(t, "Bandafassi", page.Rows[0][0])
		assert.Equal(t, 3, page.Total)
	})

	t.Run("SaveRowsReplaces", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		run, err := s.CreateRun(ctx, model.RunModeVillages, nil)
		require.NoError(t, err)
		_, err = s.SaveRows(ctx, run.ID, profileTable())
		require.NoError(t, err)

		small := table.New("ID")
		r := table.NewRow(0)
		r.Set("ID", "only")
		small.Append(r)
		_, err = s.SaveRows(ctx, run.ID, small)
		require.NoError(t, err)

		set, err := s.ListRows(ctx, run.ID, 10, 0)
		require.NoError(t, err)
		assert.Equal(t, []string{"ID"}, set.Columns)
		assert.Equal(t, 1, set.Total)
		assert.Equal(t, [][]any{{"only"}}, set.Rows)
	})

	t.Run("RowsUnknownRun", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		_, err := s.SaveRows(ctx, "missing", profileTable())
		assert.True(t, errors.Is(err, ErrNotFound))
		_, err = s.ListRows(ctx, "missing", 10, 0)
		assert.True(t, errors.Is(err, ErrNotFound))
	})

	t.Run("ListRowsBeforeSave", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		run, err := s.CreateRun(ctx, model.RunModeCountries, nil)
		require.NoError(t, err)
		set, err := s.ListRows(ctx, run.ID, 10, 0)
		require.NoError(t, err)
		assert.Empty(t, set.Columns)
		assert.Empty(t, set.Rows)
	})
}

func TestSQLiteStore(t *testing.T) {
	storeTestSuite(t, newTestSQLite)
}

func TestSQLite_Migrate_Idempotent(t *testing.T) {
	s := newTestSQLite(t)
	require.NoError(t, s.Migrate(context.Background()))
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, "sqlite", filepath.Join(t.TempDir(), "nested", "runs.db"), nil)
	require.NoError(t, err)
	require.NoError(t, s.Migrate(ctx))
	require.NoError(t, s.Close())

	_, err = Open(ctx, "mysql", "", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported driver")
}
