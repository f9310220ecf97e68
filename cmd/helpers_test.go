//go:build !integration

package main

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/sells-group/parkprofile/internal/config"
	"github.com/sells-group/parkprofile/internal/raster"
	"github.com/sells-group/parkprofile/internal/store"
	"github.com/sells-group/parkprofile/internal/vector"
)

// grid is 100x100 cells of 100m covering (0,0)-(10000,10000).
func grid() raster.Info {
	return raster.Info{OriginX: 0, OriginY: 10000, PixelWidth: 100, PixelHeight: 100, Cols: 100, Rows: 100, NoData: -9999, HasNoData: true}
}

// byColumn builds a layer whose value depends only on the column.
func byColumn(t *testing.T, fn func(col int) float64) *raster.Layer {
	t.Helper()
	info := grid()
	data := make([]float64, info.Cols*info.Rows)
	for r := 0; r < info.Rows; r++ {
		for c := 0; c < info.Cols; c++ {
			data[r*info.Cols+c] = fn(c)
		}
	}
	l, err := raster.NewLayer(info, data)
	require.NoError(t, err)
	return l
}

func landuseByColumn(t *testing.T) *raster.Layer {
	return byColumn(t, func(c int) float64 {
		if c < 25 {
			return 10
		}
		return 50
	})
}

// useRasters serves in-memory layers by file name in place of GDAL.
func useRasters(t *testing.T, layers map[string]*raster.Layer) {
	t.Helper()
	prev := openRaster
	openRaster = func(path string) (raster.Source, io.Closer, error) {
		l, ok := layers[filepath.Base(path)]
		if !ok {
			return nil, nil, errors.New("no such raster: " + path)
		}
		return l, nil, nil
	}
	t.Cleanup(func() { openRaster = prev })
}

// testConfig installs a config whose datasets live in a temp dir holding
// a YAML land-use legend.
func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	legendYAML := "name: landuse\nentries:\n  - code: 10\n    label: Cropland\n  - code: 50\n    label: Tree cover\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "landuse.yaml"), []byte(legendYAML), 0o644))

	c := &config.Config{
		Profile: config.ProfileConfig{
			DatasetsStoragePath: dir,
			BufferVillages:      []float64{500, 2000},
			MinDist:             1e15,
			DistanceMode:        "centroid",
			Workers:             2,
			CountryStrategy:     "duplicate",
			IDField:             "Full_Name",
			ParkNameField:       "NAME",
			OtherSpeciesField:   "Other Anop",
			Encoding:            "windows-1252",
		},
		Layers: config.LayersConfig{
			Population: config.LayerConfig{Path: "population.tif"},
			Landuse:    config.LayerConfig{Path: "landuse.tif", Legend: "landuse.yaml"},
			NDVI:       config.LayerConfig{Path: "ndvi.tif"},
		},
		Store: config.StoreConfig{Driver: "sqlite"},
	}

	prev := cfg
	cfg = c
	t.Cleanup(func() { cfg = prev })
	return c
}

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	s, err := store.NewSQLite(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() }) //nolint:errcheck
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

// writePoints creates a point shapefile with a name field and one
// species flag per point.
func writePoints(t *testing.T, name string, points [][2]float64, names []string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)

	w, err := shp.Create(path, shp.POINT)
	require.NoError(t, err)
	require.NoError(t, w.SetFields([]shp.Field{
		shp.StringField("Full_Name", 50),
		shp.StringField("An gambiae", 1),
		shp.StringField("Other Anop", 80),
	}))
	for i, p := range points {
		n := int(w.Write(&shp.Point{X: p[0], Y: p[1]}))
		require.NoError(t, w.WriteAttribute(n, 0, names[i]))
		require.NoError(t, w.WriteAttribute(n, 1, "Y"))
		require.NoError(t, w.WriteAttribute(n, 2, ""))
	}
	w.Close()
	return path
}

func square(x0, y0, x1, y1 float64) *geom.MultiPolygon {
	mp := geom.NewMultiPolygon(geom.XY)
	_ = mp.Push(geom.NewPolygonFlat(geom.XY, []float64{x0, y0, x1, y0, x1, y1, x0, y1, x0, y0}, []int{10}))
	return mp
}

// writePolygons creates a polygon shapefile with a NAME field.
func writePolygons(t *testing.T, name string, names []string, polys []*geom.MultiPolygon) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	features := make([]vector.Feature, len(polys))
	for i, p := range polys {
		features[i] = vector.Feature{Geometry: p, Values: []any{names[i]}}
	}
	_, err := vector.Write(path, []vector.Field{{Name: "NAME"}}, features)
	require.NoError(t, err)
	return path
}
