package spatial

import (
	"math"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
)

// DistanceMode selects what is measured against a park boundary.
type DistanceMode int

const (
	// DistanceCentroid measures from the entity centroid.
	DistanceCentroid DistanceMode = iota
	// DistanceGeometry measures from the closest point of the entity.
	DistanceGeometry
)

func (m DistanceMode) String() string {
	if m == DistanceGeometry {
		return "geometry"
	}
	return "centroid"
}

// ParseDistanceMode parses "centroid" or "geometry".
func ParseDistanceMode(s string) (DistanceMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "centroid":
		return DistanceCentroid, nil
	case "geometry":
		return DistanceGeometry, nil
	}
	return 0, eris.Errorf("spatial: unknown distance mode %q", s)
}

// BoundaryDistance returns the distance from c to the nearest ring of park.
func BoundaryDistance(park *geom.MultiPolygon, c geom.Coord) float64 {
	best := math.Inf(1)
	for i := 0; i < park.NumPolygons(); i++ {
		p := park.Polygon(i)
		for j := 0; j < p.NumLinearRings(); j++ {
			ring := p.LinearRing(j)
			d := xy.DistanceFromPointToLineString(ring.Layout(), c, ring.FlatCoords())
			if d < best {
				best = d
			}
		}
	}
	return best
}

// GeometryBoundaryDistance returns the smallest distance between any vertex
// or edge of g and the rings of park. It is 0 when they cross.
func GeometryBoundaryDistance(park *geom.MultiPolygon, g geom.T) float64 {
	lines := entityLines(g)
	best := math.Inf(1)
	for i := 0; i < park.NumPolygons(); i++ {
		p := park.Polygon(i)
		for j := 0; j < p.NumLinearRings(); j++ {
			ring := ringCoords(p.LinearRing(j))
			for _, line := range lines {
				if d := linesDistance(line, ring); d < best {
					best = d
				}
				if best == 0 {
					return 0
				}
			}
		}
	}
	return best
}

func linesDistance(a, b []geom.Coord) float64 {
	best := math.Inf(1)
	if len(a) == 1 {
		for k := 0; k+1 < len(b); k++ {
			best = math.Min(best, xy.DistanceFromPointToLine(a[0], b[k], b[k+1]))
		}
		return best
	}
	for i := 0; i+1 < len(a); i++ {
		for k := 0; k+1 < len(b); k++ {
			best = math.Min(best, xy.DistanceFromLineToLine(a[i], a[i+1], b[k], b[k+1]))
		}
	}
	return best
}

// entityLines returns the vertex chains of g. Points become one-element
// chains.
func entityLines(g geom.T) [][]geom.Coord {
	switch t := g.(type) {
	case *geom.Point:
		return [][]geom.Coord{{{t.X(), t.Y()}}}
	case *geom.MultiPoint:
		out := make([][]geom.Coord, 0, t.NumPoints())
		for i := 0; i < t.NumPoints(); i++ {
			p := t.Point(i)
			out = append(out, []geom.Coord{{p.X(), p.Y()}})
		}
		return out
	case *geom.Polygon:
		out := make([][]geom.Coord, 0, t.NumLinearRings())
		for i := 0; i < t.NumLinearRings(); i++ {
			out = append(out, ringCoords(t.LinearRing(i)))
		}
		return out
	case *geom.MultiPolygon:
		var out [][]geom.Coord
		for i := 0; i < t.NumPolygons(); i++ {
			out = append(out, entityLines(t.Polygon(i))...)
		}
		return out
	}
	return nil
}
