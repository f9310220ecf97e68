//go:build !integration

package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
	"github.com/twpayne/go-geom"

	"github.com/sells-group/parkprofile/internal/export"
	"github.com/sells-group/parkprofile/internal/model"
	"github.com/sells-group/parkprofile/internal/profile"
	"github.com/sells-group/parkprofile/internal/raster"
	"github.com/sells-group/parkprofile/internal/store"
	"github.com/sells-group/parkprofile/internal/table"
)

func villageFixture(t *testing.T) villageOptions {
	t.Helper()
	testConfig(t)
	useRasters(t, map[string]*raster.Layer{
		"population.tif": raster.Constant(grid(), 2),
		"landuse.tif":    landuseByColumn(t),
		"ndvi.tif":       raster.Constant(grid(), 5000),
	})
	return villageOptions{
		Villages: writePoints(t, "villages.shp", [][2]float64{{5000, 5000}, {1000, 9000}}, []string{"Kedougou", "Saraya"}),
		Parks:    writePolygons(t, "parks.shp", []string{"Niokolo-Koba"}, []*geom.MultiPolygon{square(4000, 4000, 6000, 6000)}),
		Format:   "xlsx",
	}
}

func TestRunVillages(t *testing.T) {
	o := villageFixture(t)
	o.Out = filepath.Join(t.TempDir(), "out.xlsx")
	st := newTestStore(t)
	ctx := context.Background()

	run, err := runVillages(ctx, st, o)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusComplete, run.Status)
	require.NotNil(t, run.Summary)
	assert.Equal(t, 2, run.Summary.Rows)
	assert.Equal(t, o.Out, run.Summary.OutputPath)

	stored, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusComplete, stored.Status)
	assert.Equal(t, model.RunModeVillages, stored.Mode)
	assert.Equal(t, o.Villages, stored.Params["villages"])

	rows, err := st.ListRows(ctx, run.ID, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, rows.Total)
	assert.Equal(t, profile.IdentityColumns, rows.Columns[:len(profile.IdentityColumns)])
	assert.Contains(t, rows.Columns, "POP_500")
	assert.Contains(t, rows.Columns, "HAB_Cropland_2000")
	assert.Equal(t, "Kedougou", rows.Rows[0][0])
	assert.Equal(t, "Niokolo-Koba", rows.Rows[0][3])

	wb, err := xlsx.OpenFile(o.Out)
	require.NoError(t, err)
	sheet, ok := wb.Sheet[export.SheetName]
	require.True(t, ok)
	require.Len(t, sheet.Rows, 3)
	assert.Equal(t, "ID", sheet.Rows[0].Cells[0].String())
	assert.Equal(t, "Saraya", sheet.Rows[2].Cells[0].String())
}

func TestRunVillages_NoParks(t *testing.T) {
	o := villageFixture(t)
	o.Parks = ""
	o.NoParks = true
	o.Format = "csv"
	o.Buffers = []float64{1000}
	st := newTestStore(t)

	run, err := runVillages(context.Background(), st, o)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(filepath.Dir(o.Villages), "villages_profiles.csv"), run.Summary.OutputPath)
	assert.FileExists(t, run.Summary.OutputPath)

	rows, err := st.ListRows(context.Background(), run.ID, 10, 0)
	require.NoError(t, err)
	assert.Contains(t, rows.Columns, "POP_1000")
	assert.NotContains(t, rows.Columns, "POP_500")
}

func TestRunVillages_MissingRasterFailsRun(t *testing.T) {
	o := villageFixture(t)
	cfg.Layers.SWI.Path = "swi.tif"
	st := newTestStore(t)
	ctx := context.Background()

	run, err := runVillages(ctx, st, o)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "swi")
	require.NotNil(t, run)
	assert.Equal(t, model.RunStatusFailed, run.Status)

	stored, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusFailed, stored.Status)
	assert.Contains(t, stored.Error, "swi")
}

// rowsFailStore rejects every SaveRows call.
type rowsFailStore struct {
	store.Store
}

func (rowsFailStore) SaveRows(context.Context, string, *table.Table) (int64, error) {
	return 0, errors.New("disk full")
}

func TestRunVillages_SaveRowsFailureSkipsExport(t *testing.T) {
	o := villageFixture(t)
	o.Out = filepath.Join(t.TempDir(), "out.xlsx")
	st := newTestStore(t)

	run, err := runVillages(context.Background(), rowsFailStore{st}, o)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "save rows")
	assert.Equal(t, model.RunStatusFailed, run.Status)

	_, statErr := os.Stat(o.Out)
	assert.True(t, os.IsNotExist(statErr))

	stored, err := st.GetRun(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusFailed, stored.Status)
	assert.Contains(t, stored.Error, "disk full")
}

func TestRunVillages_Validation(t *testing.T) {
	testConfig(t)
	st := newTestStore(t)

	tests := []struct {
		name string
		opts villageOptions
		want string
	}{
		{"no villages", villageOptions{Parks: "p.shp"}, "--villages"},
		{"no parks", villageOptions{Villages: "v.shp"}, "--parks"},
		{"shapefile output", villageOptions{Villages: "v.shp", NoParks: true, Format: "shp"}, "xlsx or csv"},
		{"bad format", villageOptions{Villages: "v.shp", NoParks: true, Format: "pdf"}, "pdf"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runVillages(context.Background(), st, tt.opts)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	runs, err := st.ListRuns(context.Background(), store.RunFilter{})
	require.NoError(t, err)
	assert.Empty(t, runs)
}
