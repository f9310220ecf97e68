package legend

import (
	"encoding/xml"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/htmlindex"
	"gopkg.in/yaml.v3"
)

// Item kinds used by QGIS style files.
const (
	ItemKindItem         = "item"
	ItemKindPaletteEntry = "paletteEntry"
)

// Load reads a legend file, choosing the parser from its extension.
// itemKind selects the QML element carrying value/label attributes.
func Load(path, itemKind string) (*Legend, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".qml", ".xml":
		return LoadQML(path, itemKind)
	case ".yaml", ".yml":
		return LoadYAML(path)
	}
	return nil, eris.Errorf("legend: unsupported legend file %s", path)
}

// LoadQML reads a QGIS style file.
func LoadQML(path, itemKind string) (*Legend, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "legend: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	entries, err := ParseQML(f, itemKind)
	if err != nil {
		return nil, eris.Wrapf(err, "legend: parse %s", path)
	}

	zap.L().With(zap.String("component", "legend")).Debug("loaded qml legend",
		zap.String("path", path),
		zap.String("item_kind", itemKind),
		zap.Int("entries", len(entries)),
	)
	return New(legendName(path), entries), nil
}

// ParseQML streams r and collects every itemKind element's value and label.
// Elements whose value is not numeric are skipped.
func ParseQML(r io.Reader, itemKind string) ([]Entry, error) {
	if itemKind == "" {
		itemKind = ItemKindItem
	}

	decoder := xml.NewDecoder(r)
	decoder.CharsetReader = func(charset string, input io.Reader) (io.Reader, error) {
		enc, err := htmlindex.Get(charset)
		if err != nil {
			return nil, eris.Wrapf(err, "legend: unsupported charset %s", charset)
		}
		return enc.NewDecoder().Reader(input), nil
	}

	var entries []Entry
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "legend: xml token")
		}

		se, ok := tok.(xml.StartElement)
		if !ok || se.Name.Local != itemKind {
			continue
		}

		var value, label string
		for _, a := range se.Attr {
			switch a.Name.Local {
			case "value":
				value = a.Value
			case "label":
				label = a.Value
			}
		}
		code, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			continue
		}
		entries = append(entries, Entry{Code: int(code), Label: strings.TrimSpace(label)})
	}
	return entries, nil
}

// yamlLegend is the on-disk shape of a YAML legend.
type yamlLegend struct {
	Name    string  `yaml:"name"`
	Entries []Entry `yaml:"entries"`
}

// LoadYAML reads a legend written as
//
//	name: landuse
//	entries:
//	  - {code: 10, label: Cropland}
func LoadYAML(path string) (*Legend, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "legend: read %s", path)
	}

	var doc yamlLegend
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, eris.Wrapf(err, "legend: parse %s", path)
	}
	name := doc.Name
	if name == "" {
		name = legendName(path)
	}
	return New(name, doc.Entries), nil
}

func legendName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
