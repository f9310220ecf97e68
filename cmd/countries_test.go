//go:build !integration

package main

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/sells-group/parkprofile/internal/model"
	"github.com/sells-group/parkprofile/internal/raster"
	"github.com/sells-group/parkprofile/internal/vector"
)

func countryFixture(t *testing.T) countryOptions {
	t.Helper()
	testConfig(t)
	useRasters(t, map[string]*raster.Layer{
		"population.tif": raster.Constant(grid(), 1),
		"landuse.tif":    landuseByColumn(t),
	})
	return countryOptions{
		AOI: writePolygons(t, "aoi.shp", []string{"Senegal"}, []*geom.MultiPolygon{square(0, 0, 5000, 10000)}),
		LandusePolygons: writePolygons(t, "habitats.shp", []string{"crops", "forest"}, []*geom.MultiPolygon{
			square(0, 0, 2500, 10000),
			square(2500, 0, 5000, 10000),
		}),
	}
}

func TestRunCountries_AppendCSV(t *testing.T) {
	o := countryFixture(t)
	o.Strategy = "append"
	o.Format = "csv"
	o.Population = true
	st := newTestStore(t)

	run, err := runCountries(context.Background(), st, o)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusComplete, run.Status)
	assert.Equal(t, 1, run.Summary.Rows)

	f, err := os.Open(run.Summary.OutputPath)
	require.NoError(t, err)
	defer f.Close() //nolint:errcheck
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, []string{"NAME", "HAB_DIV", "HAB_Cropland", "HAB_Tree cover", "SUM_POP", "DENS_POP"}, records[0])
	assert.Equal(t, "Senegal", records[1][0])
	assert.Equal(t, "2", records[1][1])
	assert.Equal(t, "50", records[1][2])
	assert.Equal(t, "5000", records[1][4])

	stored, err := st.GetRun(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, "append", stored.Params["strategy"])
}

func TestRunCountries_DuplicateShapefile(t *testing.T) {
	o := countryFixture(t)
	o.Format = "shp"
	o.Out = filepath.Join(t.TempDir(), "countries.shp")
	st := newTestStore(t)

	run, err := runCountries(context.Background(), st, o)
	require.NoError(t, err)
	assert.Equal(t, 2, run.Summary.Rows)

	layer, err := vector.Read(o.Out, vector.Options{Encoding: "utf-8"})
	require.NoError(t, err)
	require.Len(t, layer.Records, 2)
	assert.Equal(t, []string{"NAME", "HAB", "HAB_PROP", "HAB_AREA"}, layer.Fields)
	assert.Equal(t, "Cropland", layer.Records[0].Attr("HAB"))
	assert.Equal(t, "Tree cover", layer.Records[1].Attr("HAB"))

	rows, err := st.ListRows(context.Background(), run.ID, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, rows.Total)
	assert.Equal(t, 50.0, rows.Rows[0][2])
}

func TestRunCountries_Validation(t *testing.T) {
	testConfig(t)
	st := newTestStore(t)

	tests := []struct {
		name string
		opts countryOptions
		want string
	}{
		{"no aoi", countryOptions{}, "--aoi"},
		{"duplicate without habitats", countryOptions{AOI: "aoi.shp"}, "--landuse-polygons"},
		{"bad strategy", countryOptions{AOI: "aoi.shp", Strategy: "merge"}, "merge"},
		{"bad format", countryOptions{AOI: "aoi.shp", Strategy: "append", Format: "pdf"}, "pdf"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runCountries(context.Background(), st, tt.opts)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestRunCountries_UnreadableAOI(t *testing.T) {
	o := countryFixture(t)
	o.AOI = filepath.Join(t.TempDir(), "missing.shp")
	st := newTestStore(t)

	run, err := runCountries(context.Background(), st, o)
	require.Error(t, err)
	assert.Equal(t, model.RunStatusFailed, run.Status)
}
