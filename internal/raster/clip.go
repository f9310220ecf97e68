package raster

import (
	"math"
	"slices"

	"github.com/golang/geo/r1"
	"github.com/golang/geo/r2"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
)

// ErrNoOverlap is returned when a clip geometry does not intersect the
// raster extent.
var ErrNoOverlap = eris.New("raster: geometry does not overlap raster extent")

// Clip reads the window of src covering g and masks every cell whose centre
// lies outside g. Points keep the single cell they fall in. The result only
// depends on the grid values and the geometry.
func Clip(src Source, g geom.T) (*Layer, error) {
	if g == nil || len(g.FlatCoords()) == 0 {
		return nil, eris.New("raster: empty clip geometry")
	}
	info := src.Describe()
	if err := info.Validate(); err != nil {
		return nil, err
	}

	b := g.Bounds()
	rect := r2.Rect{
		X: r1.Interval{Lo: b.Min(0), Hi: b.Max(0)},
		Y: r1.Interval{Lo: b.Min(1), Hi: b.Max(1)},
	}
	w, ok := info.WindowFor(rect)
	if !ok {
		return nil, ErrNoOverlap
	}

	layer, err := src.ReadWindow(w)
	if err != nil {
		return nil, eris.Wrap(err, "raster: read window")
	}

	inside, err := coverage(layer.Info, g)
	if err != nil {
		return nil, err
	}
	fill := layer.Info.Fill()
	for i := range layer.Data {
		if !inside[i] {
			layer.Data[i] = fill
		}
	}
	return layer, nil
}

// coverage returns, per cell of info, whether the cell belongs to g.
func coverage(info Info, g geom.T) ([]bool, error) {
	inside := make([]bool, info.Cols*info.Rows)

	switch t := g.(type) {
	case *geom.Point:
		markPoint(info, inside, t.Coords())
	case *geom.MultiPoint:
		for i := 0; i < t.NumPoints(); i++ {
			markPoint(info, inside, t.Point(i).Coords())
		}
	case *geom.Polygon:
		fillRings(info, inside, polygonRings(t))
	case *geom.MultiPolygon:
		var rings [][]float64
		for i := 0; i < t.NumPolygons(); i++ {
			rings = append(rings, polygonRings(t.Polygon(i))...)
		}
		fillRings(info, inside, rings)
	default:
		return nil, eris.Errorf("raster: unsupported clip geometry %T", g)
	}
	return inside, nil
}

func markPoint(info Info, inside []bool, c geom.Coord) {
	col := int(math.Floor((c.X() - info.OriginX) / info.PixelWidth))
	row := int(math.Floor((info.OriginY - c.Y()) / info.PixelHeight))
	if col < 0 || col >= info.Cols || row < 0 || row >= info.Rows {
		return
	}
	inside[row*info.Cols+col] = true
}

// polygonRings returns each ring as flat XY coordinates.
func polygonRings(p *geom.Polygon) [][]float64 {
	stride := p.Stride()
	rings := make([][]float64, 0, p.NumLinearRings())
	for i := 0; i < p.NumLinearRings(); i++ {
		flat := p.LinearRing(i).FlatCoords()
		xy := make([]float64, 0, len(flat)/stride*2)
		for j := 0; j+1 < len(flat); j += stride {
			xy = append(xy, flat[j], flat[j+1])
		}
		rings = append(rings, xy)
	}
	return rings
}

// fillRings marks cell centres inside the rings using an even-odd scanline.
func fillRings(info Info, inside []bool, rings [][]float64) {
	var xs []float64
	for row := 0; row < info.Rows; row++ {
		_, yc := info.CellCenter(0, row)
		xs = xs[:0]
		for _, ring := range rings {
			n := len(ring) / 2
			for k := 0; k < n; k++ {
				x1, y1 := ring[2*k], ring[2*k+1]
				x2, y2 := ring[2*((k+1)%n)], ring[2*((k+1)%n)+1]
				if (y1 > yc) == (y2 > yc) {
					continue
				}
				xs = append(xs, x1+(yc-y1)*(x2-x1)/(y2-y1))
			}
		}
		slices.Sort(xs)
		for k := 0; k+1 < len(xs); k += 2 {
			c0 := int(math.Ceil((xs[k]-info.OriginX)/info.PixelWidth - 0.5))
			c1 := int(math.Ceil((xs[k+1]-info.OriginX)/info.PixelWidth - 0.5))
			c0, c1 = clamp(c0, 0, info.Cols), clamp(c1, 0, info.Cols)
			for c := c0; c < c1; c++ {
				inside[row*info.Cols+c] = true
			}
		}
	}
}
