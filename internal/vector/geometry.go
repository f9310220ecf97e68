package vector

import (
	"math"

	"github.com/jonas-p/go-shp"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
	"go.uber.org/zap"
)

// ShapeToGeometry converts a shapefile shape to a go-geom geometry.
// Polygons become MultiPolygons with holes attached to the outer ring that
// contains them. Returns nil for unsupported or empty shapes.
func ShapeToGeometry(shape shp.Shape) geom.T {
	switch s := shape.(type) {
	case *shp.Point:
		return geom.NewPointFlat(geom.XY, []float64{s.X, s.Y})
	case *shp.PointZ:
		return geom.NewPointFlat(geom.XY, []float64{s.X, s.Y})
	case *shp.PointM:
		return geom.NewPointFlat(geom.XY, []float64{s.X, s.Y})
	case *shp.MultiPoint:
		if len(s.Points) == 0 {
			return nil
		}
		return geom.NewMultiPointFlat(geom.XY, flatPoints(s.Points))
	case *shp.Polygon:
		return ringsToMultiPolygon(splitParts(s.Parts, s.Points))
	case *shp.PolygonZ:
		return ringsToMultiPolygon(splitParts(s.Parts, s.Points))
	case *shp.PolygonM:
		return ringsToMultiPolygon(splitParts(s.Parts, s.Points))
	}
	return nil
}

func splitParts(parts []int32, points []shp.Point) [][]float64 {
	rings := make([][]float64, 0, len(parts))
	for i := range parts {
		start := parts[i]
		end := int32(len(points))
		if i+1 < len(parts) {
			end = parts[i+1]
		}
		if start < 0 || end > int32(len(points)) || end-start < 3 {
			continue
		}
		rings = append(rings, closeRing(flatPoints(points[start:end])))
	}
	return rings
}

func flatPoints(points []shp.Point) []float64 {
	flat := make([]float64, 0, 2*len(points))
	for _, p := range points {
		flat = append(flat, p.X, p.Y)
	}
	return flat
}

func closeRing(flat []float64) []float64 {
	n := len(flat)
	if n >= 4 && (flat[0] != flat[n-2] || flat[1] != flat[n-1]) {
		flat = append(flat, flat[0], flat[1])
	}
	return flat
}

// signedArea is positive for counter-clockwise rings.
func signedArea(flat []float64) float64 {
	a := 0.0
	for i := 0; i+3 < len(flat); i += 2 {
		a += flat[i]*flat[i+3] - flat[i+2]*flat[i+1]
	}
	return a / 2
}

// ringsToMultiPolygon treats clockwise rings as shells and counter-clockwise
// rings as holes, the shapefile convention.
func ringsToMultiPolygon(rings [][]float64) geom.T {
	if len(rings) == 0 {
		return nil
	}

	var shells, holes [][]float64
	for _, r := range rings {
		if signedArea(r) > 0 {
			holes = append(holes, r)
		} else {
			shells = append(shells, r)
		}
	}
	if len(shells) == 0 {
		shells, holes = holes, nil
	}

	polys := make([]*geom.Polygon, len(shells))
	for i, s := range shells {
		polys[i] = geom.NewPolygon(geom.XY)
		if err := polys[i].Push(geom.NewLinearRingFlat(geom.XY, s)); err != nil {
			zap.L().Debug("vector: skipping malformed shell", zap.Int("ring", i), zap.Error(err))
		}
	}

	areas := make([]float64, len(shells))
	for i, s := range shells {
		areas[i] = math.Abs(signedArea(s))
	}

	// A hole belongs to the smallest shell containing it, so lakes on
	// islands inside lakes stay with the island.
	for i, h := range holes {
		owner := -1
		for j, s := range shells {
			if !xy.IsPointInRing(geom.XY, geom.Coord{h[0], h[1]}, s) {
				continue
			}
			if owner < 0 || areas[j] < areas[owner] {
				owner = j
			}
		}
		if owner < 0 {
			p := geom.NewPolygon(geom.XY)
			if err := p.Push(geom.NewLinearRingFlat(geom.XY, h)); err == nil {
				polys = append(polys, p)
			}
			continue
		}
		if err := polys[owner].Push(geom.NewLinearRingFlat(geom.XY, h)); err != nil {
			zap.L().Debug("vector: skipping malformed hole", zap.Int("ring", i), zap.Error(err))
		}
	}

	mp := geom.NewMultiPolygon(geom.XY)
	for _, p := range polys {
		if p.NumLinearRings() == 0 {
			continue
		}
		if err := mp.Push(p); err != nil {
			zap.L().Debug("vector: skipping malformed polygon", zap.Error(err))
		}
	}
	if mp.NumPolygons() == 0 {
		return nil
	}
	return mp
}

// GeometryToShape converts a go-geom geometry to a shapefile shape. Shells
// are written clockwise and holes counter-clockwise.
func GeometryToShape(g geom.T) shp.Shape {
	switch t := g.(type) {
	case *geom.Point:
		return &shp.Point{X: t.X(), Y: t.Y()}
	case *geom.Polygon:
		mp := geom.NewMultiPolygon(geom.XY)
		if err := mp.Push(t); err != nil {
			return &shp.Null{}
		}
		return multiPolygonToShape(mp)
	case *geom.MultiPolygon:
		return multiPolygonToShape(t)
	}
	return &shp.Null{}
}

func multiPolygonToShape(mp *geom.MultiPolygon) shp.Shape {
	var parts [][]shp.Point
	for i := 0; i < mp.NumPolygons(); i++ {
		p := mp.Polygon(i)
		for j := 0; j < p.NumLinearRings(); j++ {
			ring := p.LinearRing(j)
			stride := ring.Stride()
			flat := make([]float64, 0, len(ring.FlatCoords()))
			for k := 0; k+1 < len(ring.FlatCoords()); k += stride {
				flat = append(flat, ring.FlatCoords()[k], ring.FlatCoords()[k+1])
			}
			flat = closeRing(flat)
			ccw := signedArea(flat) > 0
			if (j == 0 && ccw) || (j > 0 && !ccw) {
				flat = reverseRing(flat)
			}
			pts := make([]shp.Point, 0, len(flat)/2)
			for k := 0; k+1 < len(flat); k += 2 {
				pts = append(pts, shp.Point{X: flat[k], Y: flat[k+1]})
			}
			parts = append(parts, pts)
		}
	}
	if len(parts) == 0 {
		return &shp.Null{}
	}
	poly := shp.Polygon(*shp.NewPolyLine(parts))
	return &poly
}

func reverseRing(flat []float64) []float64 {
	out := make([]float64, len(flat))
	n := len(flat) / 2
	for i := 0; i < n; i++ {
		out[2*i] = flat[2*(n-1-i)]
		out[2*i+1] = flat[2*(n-1-i)+1]
	}
	return out
}
