package export

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
	"github.com/twpayne/go-geom"

	"github.com/sells-group/parkprofile/internal/table"
	"github.com/sells-group/parkprofile/internal/vector"
)

func sampleTable() *table.Table {
	tb := table.New("NAME", "HAB", "HAB_PROP", "CATCH_SITE")

	a := table.NewRow(0)
	a.Geometry = geom.NewPolygonFlat(geom.XY, []float64{0, 0, 0, 10, 10, 10, 10, 0, 0, 0}, []int{10})
	a.Set("NAME", "Sénégal")
	a.Set("HAB", "Cropland")
	a.Set("HAB_PROP", 50.125)
	a.Set("CATCH_SITE", 2)

	b := table.NewRow(1)
	b.Geometry = geom.NewPolygonFlat(geom.XY, []float64{20, 20, 20, 30, 30, 30, 30, 20, 20, 20}, []int{10})
	b.Set("NAME", "Gambia")
	b.Set("HAB", nil)
	b.Set("HAB_PROP", nil)
	b.Set("CATCH_SITE", 0)

	tb.Append(a, b)
	return tb
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatXLSX, false},
		{"xlsx", FormatXLSX, false},
		{".CSV", FormatCSV, false},
		{"shp", FormatShapefile, false},
		{"parquet", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDefaultPath(t *testing.T) {
	assert.Equal(t, "/data/villages_profiles.xlsx", DefaultPath("/data/villages.shp", FormatXLSX))
	assert.Equal(t, "aoi_profiles.csv", DefaultPath("aoi", FormatCSV))
}

func TestWriteXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.xlsx")
	require.NoError(t, Write(sampleTable(), path, FormatXLSX))

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	sheet, ok := f.Sheet[SheetName]
	require.True(t, ok)
	require.Len(t, sheet.Rows, 3)

	header := sheet.Rows[0]
	require.Len(t, header.Cells, 4)
	assert.Equal(t, "NAME", header.Cells[0].String())
	assert.Equal(t, "CATCH_SITE", header.Cells[3].String())

	first := sheet.Rows[1]
	assert.Equal(t, "Sénégal", first.Cells[0].String())
	prop, err := first.Cells[2].Float()
	require.NoError(t, err)
	assert.Equal(t, 50.125, prop)
	n, err := first.Cells[3].Int()
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	assert.Equal(t, "", sheet.Rows[2].Cells[1].String())
}

func TestWriteCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	require.NoError(t, Write(sampleTable(), path, FormatCSV))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close() //nolint:errcheck

	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"NAME", "HAB", "HAB_PROP", "CATCH_SITE"},
		{"Sénégal", "Cropland", "50.125", "2"},
		{"Gambia", "", "", "0"},
	}, records)
}

func TestWriteShapefile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.shp")
	names, err := WriteShapefile(sampleTable(), path)
	require.NoError(t, err)
	assert.Equal(t, []string{"NAME", "HAB", "HAB_PROP", "CATCH_SITE"}, names)

	layer, err := vector.Read(path, vector.Options{Encoding: "utf-8"})
	require.NoError(t, err)
	require.Len(t, layer.Records, 2)
	assert.Equal(t, "Sénégal", layer.Records[0].Attr("NAME"))
	assert.Equal(t, "Cropland", layer.Records[0].Attr("HAB"))
	assert.Equal(t, "50.125000", layer.Records[0].Attr("HAB_PROP"))

	_, ok := layer.Records[1].Geometry.(*geom.MultiPolygon)
	assert.True(t, ok)
}

func TestWriteShapefileNeedsGeometry(t *testing.T) {
	tb := table.New("A")
	r := table.NewRow(0)
	r.Set("A", 1.0)
	tb.Append(r)

	_, err := WriteShapefile(tb, filepath.Join(t.TempDir(), "out.shp"))
	assert.Error(t, err)
}

func TestWriteUnknownFormat(t *testing.T) {
	err := Write(sampleTable(), filepath.Join(t.TempDir(), "out.bin"), Format("bin"))
	assert.Error(t, err)
}
