// Package spatial relates entity geometries to protected areas.
package spatial

import (
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
	"github.com/twpayne/go-geom/xy/location"
)

// Locate classifies c against polygon p. Points inside a hole are exterior.
func Locate(p *geom.Polygon, c geom.Coord) location.Type {
	if p.NumLinearRings() == 0 {
		return location.Exterior
	}
	layout := p.Layout()
	switch xy.LocatePointInRing(layout, c, p.LinearRing(0).FlatCoords()) {
	case location.Exterior:
		return location.Exterior
	case location.Boundary:
		return location.Boundary
	}
	for i := 1; i < p.NumLinearRings(); i++ {
		switch xy.LocatePointInRing(layout, c, p.LinearRing(i).FlatCoords()) {
		case location.Interior:
			return location.Exterior
		case location.Boundary:
			return location.Boundary
		}
	}
	return location.Interior
}

// LocateMulti classifies c against the union of mp's polygons.
func LocateMulti(mp *geom.MultiPolygon, c geom.Coord) location.Type {
	best := location.Exterior
	for i := 0; i < mp.NumPolygons(); i++ {
		switch Locate(mp.Polygon(i), c) {
		case location.Interior:
			return location.Interior
		case location.Boundary:
			best = location.Boundary
		}
	}
	return best
}

// Contains reports whether g lies inside park. Points must be strictly
// interior. Polygons must have no vertex outside one of the park polygons,
// no edge crossing its boundary, no park hole inside them and some interior
// point in common.
func Contains(park *geom.MultiPolygon, g geom.T) bool {
	if park == nil || g == nil {
		return false
	}
	switch t := g.(type) {
	case *geom.Point:
		return LocateMulti(park, t.Coords()) == location.Interior
	case *geom.MultiPoint:
		if t.NumPoints() == 0 {
			return false
		}
		for i := 0; i < t.NumPoints(); i++ {
			if LocateMulti(park, t.Point(i).Coords()) != location.Interior {
				return false
			}
		}
		return true
	case *geom.Polygon:
		for i := 0; i < park.NumPolygons(); i++ {
			if polygonContains(park.Polygon(i), t) {
				return true
			}
		}
		return false
	case *geom.MultiPolygon:
		if t.NumPolygons() == 0 {
			return false
		}
		for j := 0; j < t.NumPolygons(); j++ {
			if !Contains(park, t.Polygon(j)) {
				return false
			}
		}
		return true
	}
	return false
}

func polygonContains(outer, inner *geom.Polygon) bool {
	if inner.NumLinearRings() == 0 {
		return false
	}

	interior := false
	coords := ringCoords(inner.LinearRing(0))
	for _, c := range coords {
		switch Locate(outer, c) {
		case location.Exterior:
			return false
		case location.Interior:
			interior = true
		}
	}

	if edgesCross(outer, inner) {
		return false
	}

	for i := 1; i < outer.NumLinearRings(); i++ {
		hole := ringCoords(outer.LinearRing(i))
		if len(hole) > 0 && Locate(inner, hole[0]) == location.Interior {
			return false
		}
	}

	if interior {
		return true
	}
	c, err := xy.Centroid(inner)
	if err != nil {
		return false
	}
	return Locate(outer, c) == location.Interior
}

// edgesCross reports whether any edge of a properly crosses an edge of b.
func edgesCross(a, b *geom.Polygon) bool {
	segsA := segments(a)
	segsB := segments(b)
	for _, sa := range segsA {
		for _, sb := range segsB {
			if properlyIntersects(sa[0], sa[1], sb[0], sb[1]) {
				return true
			}
		}
	}
	return false
}

func properlyIntersects(p1, p2, q1, q2 geom.Coord) bool {
	o1 := orientation(p1, p2, q1)
	o2 := orientation(p1, p2, q2)
	o3 := orientation(q1, q2, p1)
	o4 := orientation(q1, q2, p2)
	return o1*o2 < 0 && o3*o4 < 0
}

func orientation(a, b, c geom.Coord) float64 {
	v := (b.X()-a.X())*(c.Y()-a.Y()) - (b.Y()-a.Y())*(c.X()-a.X())
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}

// segments returns every ring edge of p.
func segments(p *geom.Polygon) [][2]geom.Coord {
	var out [][2]geom.Coord
	for i := 0; i < p.NumLinearRings(); i++ {
		cs := ringCoords(p.LinearRing(i))
		for j := 0; j+1 < len(cs); j++ {
			out = append(out, [2]geom.Coord{cs[j], cs[j+1]})
		}
	}
	return out
}

// ringCoords returns the XY coordinates of a ring, closed.
func ringCoords(r *geom.LinearRing) []geom.Coord {
	flat := r.FlatCoords()
	stride := r.Stride()
	out := make([]geom.Coord, 0, len(flat)/stride+1)
	for i := 0; i+1 < len(flat); i += stride {
		out = append(out, geom.Coord{flat[i], flat[i+1]})
	}
	if n := len(out); n > 1 && (out[0][0] != out[n-1][0] || out[0][1] != out[n-1][1]) {
		out = append(out, out[0])
	}
	return out
}

// Centroid returns the centroid of g.
func Centroid(g geom.T) (geom.Coord, error) {
	if g == nil || len(g.FlatCoords()) == 0 {
		return nil, eris.New("spatial: centroid of empty geometry")
	}
	if p, ok := g.(*geom.Point); ok {
		return geom.Coord{p.X(), p.Y()}, nil
	}
	c, err := xy.Centroid(g)
	if err != nil {
		return nil, eris.Wrap(err, "spatial: centroid")
	}
	return geom.Coord{c.X(), c.Y()}, nil
}

// Area returns the planar area of polygonal geometries and 0 otherwise.
func Area(g geom.T) float64 {
	switch t := g.(type) {
	case *geom.Polygon:
		return t.Area()
	case *geom.MultiPolygon:
		return t.Area()
	}
	return 0
}
