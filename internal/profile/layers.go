package profile

import (
	"github.com/sells-group/parkprofile/internal/aggregate"
	"github.com/sells-group/parkprofile/internal/legend"
	"github.com/sells-group/parkprofile/internal/raster"
)

// ContinuousLayer is a raster reduced to statistics.
type ContinuousLayer struct {
	Name    string
	Source  raster.Source
	Columns []string
	Measure func(aggregate.Stats) []float64
}

// Population reports the population sum as POP.
func Population(src raster.Source) *ContinuousLayer {
	return &ContinuousLayer{
		Name:    "population",
		Source:  src,
		Columns: []string{"POP"},
		Measure: func(s aggregate.Stats) []float64 { return []float64{s.Sum} },
	}
}

// Prevalence reports the malaria prevalence sum as a percentage.
func Prevalence(src raster.Source) *ContinuousLayer {
	return &ContinuousLayer{
		Name:    "prevalence",
		Source:  src,
		Columns: []string{"PREVALENCE"},
		Measure: func(s aggregate.Stats) []float64 { return []float64{aggregate.ScalePrevalence(s.Sum)} },
	}
}

// SWI reports the soil water index sum on a 0-100 scale.
func SWI(src raster.Source) *ContinuousLayer {
	return &ContinuousLayer{
		Name:    "swi",
		Source:  src,
		Columns: []string{"SWI"},
		Measure: func(s aggregate.Stats) []float64 { return []float64{aggregate.ScaleSWI(s.Sum)} },
	}
}

// NDVI reports min, mean and max vegetation index.
func NDVI(src raster.Source) *ContinuousLayer {
	return &ContinuousLayer{
		Name:    "ndvi",
		Source:  src,
		Columns: []string{"NDVI_min", "NDVI_mean", "NDVI_max"},
		Measure: func(s aggregate.Stats) []float64 {
			return []float64{aggregate.ScaleNDVI(s.Min), aggregate.ScaleNDVI(s.Mean), aggregate.ScaleNDVI(s.Max)}
		},
	}
}

// CategoricalLayer is a raster reduced to per-label percentages.
type CategoricalLayer struct {
	Name   string
	Prefix string
	Source raster.Source
	Legend *legend.Legend
	// DiversityColumn holds the distinct code count. Empty disables it.
	DiversityColumn string
}

// Landuse reports habitat diversity and HAB_<label> percentages.
func Landuse(src raster.Source, lg *legend.Legend) *CategoricalLayer {
	return &CategoricalLayer{Name: "landuse", Prefix: "HAB", Source: src, Legend: lg, DiversityColumn: "HAB_DIV"}
}

// GWS reports surface water seasonality as GWS_<label> percentages.
func GWS(src raster.Source, lg *legend.Legend) *CategoricalLayer {
	return &CategoricalLayer{Name: "gws", Prefix: "GWS", Source: src, Legend: lg}
}

// LabelColumn returns the column of a label.
func (l *CategoricalLayer) LabelColumn(label string) string {
	return l.Prefix + "_" + label
}

// Layers are the rasters profiled for every entity, in column order.
type Layers struct {
	Continuous  []*ContinuousLayer
	Categorical []*CategoricalLayer
}

// AddContinuous appends layers that have a source.
func (ls *Layers) AddContinuous(layers ...*ContinuousLayer) {
	for _, l := range layers {
		if l != nil && l.Source != nil {
			ls.Continuous = append(ls.Continuous, l)
		}
	}
}

// AddCategorical appends layers that have a source.
func (ls *Layers) AddCategorical(layers ...*CategoricalLayer) {
	for _, l := range layers {
		if l != nil && l.Source != nil {
			ls.Categorical = append(ls.Categorical, l)
		}
	}
}
