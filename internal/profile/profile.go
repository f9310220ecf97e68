// Package profile assembles per-entity profiles from vector and raster
// layers.
package profile

import (
	"cmp"
	"slices"
	"strconv"

	"go.uber.org/zap"

	"github.com/sells-group/parkprofile/internal/spatial"
	"github.com/sells-group/parkprofile/internal/table"
)

// Identity columns of a village row. They do not depend on the buffer
// radius.
const (
	ColID         = "ID"
	ColX          = "x"
	ColY          = "y"
	ColPark       = "NP"
	ColLocation   = "loc_NP"
	ColDistance   = "dist_NP"
	ColSpeciesDiv = "ANO_DIV"
)

// IdentityColumns lists the radius-invariant village columns in order.
var IdentityColumns = []string{ColID, ColX, ColY, ColPark, ColLocation, ColDistance, ColSpeciesDiv}

// Default values.
const (
	DefaultMinDist           = 1e15
	DefaultOtherSpeciesField = "Other Anop"
	DefaultWorkers           = 4
)

// Options tune the assembler.
type Options struct {
	Workers           int
	MinDist           float64
	DistanceMode      spatial.DistanceMode
	OtherSpeciesField string
}

func (o Options) withDefaults() Options {
	if o.Workers <= 0 {
		o.Workers = DefaultWorkers
	}
	if o.MinDist <= 0 {
		o.MinDist = DefaultMinDist
	}
	if o.OtherSpeciesField == "" {
		o.OtherSpeciesField = DefaultOtherSpeciesField
	}
	return o
}

// Result is an assembled table plus its audit.
type Result struct {
	Table *table.Table
	Audit *Audit
}

// Suffix returns the column suffix of a buffer radius.
func Suffix(radius float64) string {
	return "_" + strconv.FormatFloat(radius, 'f', -1, 64)
}

// categoricalCells holds the outcome of one categorical layer for a row.
type categoricalCells struct {
	counted bool
	labels  []string
}

// entityRow is one assembled row with the metadata needed to finish it.
type entityRow struct {
	row         *table.Row
	categorical map[string]categoricalCells
}

// finishTable adds each categorical layer's diversity and label columns,
// labels ordered by legend rank, then the trailing columns, and appends
// the rows. Labels absent from a layer that had data are written as 0.
func finishTable(tb *table.Table, rows []entityRow, layers []*CategoricalLayer, suffix string, trailing ...string) {
	for _, l := range layers {
		if l.DiversityColumn != "" {
			tb.AddColumn(l.DiversityColumn + suffix)
		}
		seen := make(map[string]bool)
		for _, r := range rows {
			for _, label := range r.categorical[l.Name].labels {
				seen[label] = true
			}
		}
		labels := make([]string, 0, len(seen))
		for label := range seen {
			labels = append(labels, label)
		}
		slices.SortFunc(labels, func(a, b string) int {
			if c := cmp.Compare(l.Legend.Rank(a), l.Legend.Rank(b)); c != 0 {
				return c
			}
			return cmp.Compare(a, b)
		})
		for _, label := range labels {
			tb.AddColumn(l.LabelColumn(label) + suffix)
		}
		for _, r := range rows {
			if !r.categorical[l.Name].counted {
				continue
			}
			for _, label := range labels {
				col := l.LabelColumn(label) + suffix
				if !r.row.Has(col) {
					r.row.Set(col, 0.0)
				}
			}
		}
	}
	for _, c := range trailing {
		tb.AddColumn(c)
	}
	for _, r := range rows {
		tb.Append(r.row)
	}
}

func logger(component string) *zap.Logger {
	return zap.L().With(zap.String("component", component))
}
