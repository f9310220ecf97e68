// Package vector reads and writes shapefile layers.
package vector

import (
	"strconv"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"

	"github.com/sells-group/parkprofile/internal/model"
)

// DefaultEncoding is the attribute encoding of the source shapefiles.
const DefaultEncoding = "windows-1252"

// Options control how records are read.
type Options struct {
	// Encoding names the attribute charset, e.g. "windows-1252" or "utf-8".
	Encoding string
	// IDField is folded into Record.ID. Records fall back to their index
	// when it is empty or missing.
	IDField string
}

// Layer is a vector layer read into memory.
type Layer struct {
	Path    string
	Fields  []string
	Records []model.Record
}

// Read loads every record of the shapefile at path.
func Read(path string, opts Options) (*Layer, error) {
	log := zap.L().With(zap.String("component", "vector"))

	dec, err := decoder(opts.Encoding)
	if err != nil {
		return nil, err
	}

	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "vector: open shapefile %s", path)
	}
	defer func() { _ = reader.Close() }()

	fields := reader.Fields()
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = strings.TrimRight(f.String(), "\x00")
	}
	idIdx := fieldIndex(names, opts.IDField)

	layer := &Layer{Path: path, Fields: names}
	var skipped int
	for reader.Next() {
		n, shape := reader.Shape()

		g := ShapeToGeometry(shape)
		if g == nil {
			skipped++
			continue
		}

		attrs := make(map[string]string, len(names))
		for i, name := range names {
			attrs[name] = decodeAttr(dec, reader.Attribute(i))
		}

		rec := model.Record{
			Index:      len(layer.Records),
			ID:         strconv.Itoa(n),
			Geometry:   g,
			Attributes: attrs,
		}
		if idIdx >= 0 && attrs[names[idIdx]] != "" {
			_, rec.ID = model.FoldID(attrs[names[idIdx]])
		}
		layer.Records = append(layer.Records, rec)
	}

	if skipped > 0 {
		log.Debug("skipped shapefile records",
			zap.String("path", path),
			zap.Int("skipped", skipped),
		)
	}
	log.Debug("read shapefile",
		zap.String("path", path),
		zap.Int("records", len(layer.Records)),
		zap.Int("fields", len(names)),
	)
	return layer, nil
}

// ReadParks loads protected areas. Non-polygon records are skipped.
func ReadParks(path, nameField, enc string) ([]model.Park, error) {
	layer, err := Read(path, Options{Encoding: enc})
	if err != nil {
		return nil, err
	}
	nameIdx := fieldIndex(layer.Fields, nameField)
	if nameIdx < 0 && nameField != "" {
		return nil, eris.Errorf("vector: park name field %s not found in %s", nameField, path)
	}

	parks := make([]model.Park, 0, len(layer.Records))
	for _, r := range layer.Records {
		mp, ok := r.Geometry.(*geom.MultiPolygon)
		if !ok {
			continue
		}
		name := r.ID
		if nameIdx >= 0 {
			name = r.Attributes[layer.Fields[nameIdx]]
		}
		parks = append(parks, model.Park{Name: name, Geometry: mp})
	}
	return parks, nil
}

// FieldIndex returns the index of a named field, or -1 if not found.
func (l *Layer) FieldIndex(name string) int {
	return fieldIndex(l.Fields, name)
}

func fieldIndex(names []string, name string) int {
	if name == "" {
		return -1
	}
	for i, n := range names {
		if strings.EqualFold(n, name) {
			return i
		}
	}
	return -1
}

func decoder(name string) (*encoding.Decoder, error) {
	if name == "" {
		name = DefaultEncoding
	}
	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, eris.Wrapf(err, "vector: unsupported encoding %s", name)
	}
	return enc.NewDecoder(), nil
}

func decodeAttr(dec *encoding.Decoder, raw string) string {
	raw = strings.TrimRight(raw, "\x00")
	if s, err := dec.String(raw); err == nil {
		raw = s
	}
	return strings.TrimSpace(raw)
}
