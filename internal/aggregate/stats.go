package aggregate

import (
	"math"

	"github.com/sells-group/parkprofile/internal/raster"
)

// Stats are the continuous aggregates of a clip.
type Stats struct {
	Sum   float64
	Min   float64
	Mean  float64
	Max   float64
	Count int
}

// Summarize computes sum/min/mean/max over valid cells. A clip with no
// valid cells reports zero for every statistic.
func Summarize(layer *raster.Layer) Stats {
	var s Stats
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range layer.Data {
		if !layer.Info.Valid(v) {
			continue
		}
		s.Sum += v
		s.Count++
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if s.Count == 0 {
		return Stats{}
	}
	s.Min, s.Max = lo, hi
	s.Mean = s.Sum / float64(s.Count)
	return s
}

// Scaling applied to raw layer values.
const (
	NDVIScale       = 10000.0
	SWIScale        = 2.0
	PrevalenceScale = 100.0
)

// ScaleNDVI converts a raw NDVI value (±10000) to ±1.
func ScaleNDVI(v float64) float64 {
	return v / NDVIScale
}

// ScaleSWI converts a raw SWI sum to the 0-100 scale.
func ScaleSWI(sum float64) float64 {
	return sum / SWIScale
}

// ScalePrevalence converts a prevalence fraction sum to a percentage.
func ScalePrevalence(sum float64) float64 {
	return sum * PrevalenceScale
}

// Round rounds v to the given number of decimals.
func Round(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}
