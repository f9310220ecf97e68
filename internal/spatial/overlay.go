package spatial

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/wkb"
	"github.com/twpayne/go-geos"
)

// bufferQuadSegs is the number of segments per quarter circle.
const bufferQuadSegs = 16

// Buffer returns g grown by radius.
func Buffer(g geom.T, radius float64) (geom.T, error) {
	var out geom.T
	err := withGEOS(func(ctx *geos.Context) error {
		gg, err := toGEOS(ctx, g)
		if err != nil {
			return err
		}
		out, err = fromGEOS(gg.Buffer(radius, bufferQuadSegs))
		return err
	})
	if err != nil {
		return nil, eris.Wrapf(err, "spatial: buffer %g", radius)
	}
	return out, nil
}

// Intersection returns the polygonal part of a ∩ b. It returns nil when
// the intersection has no area.
func Intersection(a, b geom.T) (*geom.MultiPolygon, error) {
	var out *geom.MultiPolygon
	err := withGEOS(func(ctx *geos.Context) error {
		ga, err := toGEOS(ctx, a)
		if err != nil {
			return err
		}
		gb, err := toGEOS(ctx, b)
		if err != nil {
			return err
		}
		if !ga.Intersects(gb) {
			return nil
		}
		res := ga.Intersection(gb)
		if res.IsEmpty() {
			return nil
		}
		g, err := fromGEOS(res)
		if err != nil {
			return err
		}
		out = Polygons(g)
		return nil
	})
	if err != nil {
		return nil, eris.Wrap(err, "spatial: intersection")
	}
	return out, nil
}

// Polygons collects the polygonal parts of g. It returns nil when g has no
// polygon.
func Polygons(g geom.T) *geom.MultiPolygon {
	mp := geom.NewMultiPolygon(geom.XY)
	var walk func(geom.T)
	walk = func(g geom.T) {
		switch t := g.(type) {
		case *geom.Polygon:
			if t.NumLinearRings() > 0 {
				_ = mp.Push(toXY(t))
			}
		case *geom.MultiPolygon:
			for i := 0; i < t.NumPolygons(); i++ {
				walk(t.Polygon(i))
			}
		case *geom.GeometryCollection:
			for _, c := range t.Geoms() {
				walk(c)
			}
		}
	}
	walk(g)
	if mp.NumPolygons() == 0 {
		return nil
	}
	return mp
}

func toXY(p *geom.Polygon) *geom.Polygon {
	if p.Layout() == geom.XY {
		return p
	}
	out := geom.NewPolygon(geom.XY)
	for i := 0; i < p.NumLinearRings(); i++ {
		cs := ringCoords(p.LinearRing(i))
		flat := make([]float64, 0, 2*len(cs))
		for _, c := range cs {
			flat = append(flat, c[0], c[1])
		}
		_ = out.Push(geom.NewLinearRingFlat(geom.XY, flat))
	}
	return out
}

// withGEOS runs fn on a fresh context. GEOS reports topology failures by
// panicking, which are returned as errors.
func withGEOS(fn func(*geos.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = eris.New(fmt.Sprint(r))
		}
	}()
	return fn(geos.NewContext())
}

func toGEOS(ctx *geos.Context, g geom.T) (*geos.Geom, error) {
	if g == nil {
		return nil, eris.New("nil geometry")
	}
	data, err := wkb.Marshal(g, wkb.NDR)
	if err != nil {
		return nil, eris.Wrap(err, "encode wkb")
	}
	gg, err := ctx.NewGeomFromWKB(data)
	if err != nil {
		return nil, eris.Wrap(err, "geos from wkb")
	}
	if !gg.IsValid() {
		gg = gg.MakeValid()
	}
	return gg, nil
}

func fromGEOS(gg *geos.Geom) (geom.T, error) {
	g, err := wkb.Unmarshal(gg.ToWKB())
	if err != nil {
		return nil, eris.Wrap(err, "decode wkb")
	}
	return g, nil
}
