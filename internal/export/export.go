// Package export writes profile tables to spreadsheet and vector files.
package export

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/sells-group/parkprofile/internal/table"
	"github.com/sells-group/parkprofile/internal/vector"
)

// Format is an output file format.
type Format string

// Supported formats.
const (
	FormatXLSX      Format = "xlsx"
	FormatCSV       Format = "csv"
	FormatShapefile Format = "shp"
)

// SheetName is the worksheet written by WriteXLSX.
const SheetName = "profiles"

// ParseFormat parses a format name. Empty means xlsx.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimPrefix(s, "."))) {
	case "", FormatXLSX:
		return FormatXLSX, nil
	case FormatCSV:
		return FormatCSV, nil
	case FormatShapefile:
		return FormatShapefile, nil
	}
	return "", eris.Errorf("export: unknown format %q", s)
}

// DefaultPath derives the output path of an input file: the input path
// without its extension, suffixed with _profiles.
func DefaultPath(input string, f Format) string {
	base := strings.TrimSuffix(input, filepath.Ext(input))
	return base + "_profiles." + string(f)
}

// Write writes tb to path in format f.
func Write(tb *table.Table, path string, f Format) error {
	log := zap.L().With(zap.String("component", "export"))

	var err error
	switch f {
	case FormatXLSX:
		err = WriteXLSX(tb, path)
	case FormatCSV:
		err = WriteCSV(tb, path)
	case FormatShapefile:
		_, err = WriteShapefile(tb, path)
	default:
		err = eris.Errorf("export: unknown format %q", f)
	}
	if err != nil {
		return err
	}

	log.Info("profile table written",
		zap.String("path", path),
		zap.String("format", string(f)),
		zap.Int("rows", tb.Len()),
		zap.Int("columns", len(tb.Columns())),
	)
	return nil
}

// WriteXLSX writes tb as a single-sheet workbook. Null cells are left
// blank.
func WriteXLSX(tb *table.Table, path string) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet(SheetName)
	if err != nil {
		return eris.Wrap(err, "export: add sheet")
	}

	header := sheet.AddRow()
	for _, c := range tb.Columns() {
		header.AddCell().SetString(c)
	}

	for _, r := range tb.Rows() {
		row := sheet.AddRow()
		for _, c := range tb.Columns() {
			cell := row.AddCell()
			switch v := r.Get(c).(type) {
			case nil:
			case string:
				cell.SetString(v)
			case int:
				cell.SetInt(v)
			case float64:
				cell.SetFloat(v)
			default:
				cell.SetString(table.FormatCell(v))
			}
		}
	}

	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "export: save workbook %s", path)
	}
	return nil
}

// WriteCSV writes tb as comma-separated values with a header row.
func WriteCSV(tb *table.Table, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrap(err, "export: create csv")
	}
	defer f.Close() //nolint:errcheck

	w := csv.NewWriter(f)
	if err := w.Write(tb.Columns()); err != nil {
		return eris.Wrap(err, "export: write csv header")
	}
	record := make([]string, len(tb.Columns()))
	for _, r := range tb.Rows() {
		for i, c := range tb.Columns() {
			record[i] = table.FormatCell(r.Get(c))
		}
		if err := w.Write(record); err != nil {
			return eris.Wrap(err, "export: write csv row")
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return eris.Wrap(err, "export: flush csv")
	}
	return nil
}

// WriteShapefile writes tb as a polygon shapefile carrying each row's
// geometry. A column is numeric when every non-null value is a number.
// It returns the dBASE field names written.
func WriteShapefile(tb *table.Table, path string) ([]string, error) {
	cols := tb.Columns()
	fields := make([]vector.Field, len(cols))
	for i, c := range cols {
		fields[i] = vector.Field{Name: c, Numeric: numeric(tb, c)}
	}

	features := make([]vector.Feature, 0, tb.Len())
	for _, r := range tb.Rows() {
		if r.Geometry == nil {
			return nil, eris.Errorf("export: row %d has no geometry", r.Key)
		}
		values := make([]any, len(cols))
		for i, c := range cols {
			v := r.Get(c)
			if fields[i].Numeric {
				if f, ok := table.ToFloat(v); ok {
					v = f
				}
			}
			values[i] = v
		}
		features = append(features, vector.Feature{Geometry: r.Geometry, Values: values})
	}

	names, err := vector.Write(path, fields, features)
	if err != nil {
		return nil, eris.Wrap(err, "export: write shapefile")
	}
	return names, nil
}

func numeric(tb *table.Table, column string) bool {
	seen := false
	for _, r := range tb.Rows() {
		v := r.Get(column)
		if v == nil {
			continue
		}
		if _, ok := table.ToFloat(v); !ok {
			return false
		}
		seen = true
	}
	return seen
}
