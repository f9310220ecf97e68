package vector

import (
	"strconv"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
)

// dbfNameLen is the maximum dBASE field name length.
const dbfNameLen = 10

// Field describes an output attribute column.
type Field struct {
	Name    string
	Numeric bool
}

// Feature is one output record.
type Feature struct {
	Geometry geom.T
	Values   []any
}

// Write creates a polygon shapefile at path. Field names are truncated to
// ten characters and made unique. It returns the names actually written.
func Write(path string, fields []Field, features []Feature) ([]string, error) {
	w, err := shp.Create(path, shp.POLYGON)
	if err != nil {
		return nil, eris.Wrapf(err, "vector: create shapefile %s", path)
	}
	defer w.Close()

	names := DBFNames(fields)
	shpFields := make([]shp.Field, len(fields))
	for i, f := range fields {
		if f.Numeric {
			shpFields[i] = shp.FloatField(names[i], 18, 6)
		} else {
			shpFields[i] = shp.StringField(names[i], 254)
		}
	}
	if err := w.SetFields(shpFields); err != nil {
		return nil, eris.Wrap(err, "vector: set fields")
	}

	for _, feat := range features {
		row := int(w.Write(GeometryToShape(feat.Geometry)))
		for i := range fields {
			var v any
			if i < len(feat.Values) {
				v = feat.Values[i]
			}
			if v == nil {
				continue
			}
			if fields[i].Numeric {
				if f, ok := v.(float64); ok {
					v = strconv.FormatFloat(f, 'f', 6, 64)
				}
			} else if s, ok := v.(string); ok && len(s) > 254 {
				v = s[:254]
			}
			if err := w.WriteAttribute(row, i, v); err != nil {
				return nil, eris.Wrapf(err, "vector: write attribute %s", names[i])
			}
		}
	}
	return names, nil
}

// DBFNames truncates names to the dBASE limit, suffixing duplicates with a
// counter.
func DBFNames(fields []Field) []string {
	out := make([]string, len(fields))
	used := make(map[string]bool, len(fields))
	for i, f := range fields {
		name := truncate(f.Name, dbfNameLen)
		for n := 1; used[strings.ToUpper(name)]; n++ {
			suffix := strconv.Itoa(n)
			name = truncate(f.Name, dbfNameLen-len(suffix)) + suffix
		}
		used[strings.ToUpper(name)] = true
		out[i] = name
	}
	return out
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
