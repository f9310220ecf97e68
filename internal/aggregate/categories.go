// Package aggregate turns clipped rasters into profile statistics.
package aggregate

import (
	"slices"

	"github.com/rotisserie/eris"

	"github.com/sells-group/parkprofile/internal/legend"
	"github.com/sells-group/parkprofile/internal/raster"
)

// ErrEmptyAggregate is returned when a clip holds no valid cells.
var ErrEmptyAggregate = eris.New("aggregate: no valid cells")

// Category is the share of one raw code within a clip.
type Category struct {
	Code       float64
	Pixels     int
	Area       float64
	Percentage float64
	Label      string
	Known      bool
}

// Categories is the result of counting a categorical clip, sorted by code.
type Categories struct {
	Items     []Category
	TotalArea float64
}

// Categorize counts every distinct valid value of layer, converts counts to
// areas and percentages of the counted area and resolves labels through lg.
func Categorize(layer *raster.Layer, lg *legend.Legend) (*Categories, error) {
	counts := make(map[float64]int)
	total := 0
	for _, v := range layer.Data {
		if !layer.Info.Valid(v) {
			continue
		}
		counts[v]++
		total++
	}
	if total == 0 {
		return nil, ErrEmptyAggregate
	}

	codes := make([]float64, 0, len(counts))
	for c := range counts {
		codes = append(codes, c)
	}
	slices.Sort(codes)

	pixelArea := layer.Info.PixelArea()
	totalArea := float64(total) * pixelArea
	out := &Categories{Items: make([]Category, 0, len(codes)), TotalArea: totalArea}
	for _, code := range codes {
		n := counts[code]
		area := float64(n) * pixelArea
		label, known := lg.Resolve(code)
		out.Items = append(out.Items, Category{
			Code:       code,
			Pixels:     n,
			Area:       area,
			Percentage: area * 100 / totalArea,
			Label:      label,
			Known:      known,
		})
	}
	return out, nil
}

// Diversity is the number of distinct raw codes.
func (c *Categories) Diversity() int {
	return len(c.Items)
}

// Unknown is the number of distinct codes with no legend entry.
func (c *Categories) Unknown() int {
	n := 0
	for _, it := range c.Items {
		if !it.Known {
			n++
		}
	}
	return n
}

// Pivot sums percentages per label.
func (c *Categories) Pivot() map[string]float64 {
	out := make(map[string]float64)
	for _, it := range c.Items {
		out[it.Label] += it.Percentage
	}
	return out
}

// Dominant returns the category with the largest area. Ties go to the
// lowest code.
func (c *Categories) Dominant() Category {
	var best Category
	for i, it := range c.Items {
		if i == 0 || it.Area > best.Area {
			best = it
		}
	}
	return best
}
