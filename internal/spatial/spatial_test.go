package spatial

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy/location"

	"github.com/sells-group/parkprofile/internal/model"
)

func squarePolygon(x0, y0, x1, y1 float64) *geom.Polygon {
	return geom.NewPolygonFlat(geom.XY, []float64{x0, y0, x1, y0, x1, y1, x0, y1, x0, y0}, []int{10})
}

func squarePark(name string, x0, y0, x1, y1 float64) model.Park {
	mp := geom.NewMultiPolygon(geom.XY)
	_ = mp.Push(squarePolygon(x0, y0, x1, y1))
	return model.Park{Name: name, Geometry: mp}
}

func point(x, y float64) *geom.Point {
	return geom.NewPointFlat(geom.XY, []float64{x, y})
}

func TestLocate(t *testing.T) {
	t.Parallel()

	donut := geom.NewPolygonFlat(geom.XY, []float64{
		0, 0, 100, 0, 100, 100, 0, 100, 0, 0,
		40, 40, 60, 40, 60, 60, 40, 60, 40, 40,
	}, []int{10, 20})

	assert.Equal(t, location.Interior, Locate(donut, geom.Coord{10, 10}))
	assert.Equal(t, location.Exterior, Locate(donut, geom.Coord{50, 50}))
	assert.Equal(t, location.Boundary, Locate(donut, geom.Coord{40, 50}))
	assert.Equal(t, location.Boundary, Locate(donut, geom.Coord{0, 50}))
	assert.Equal(t, location.Exterior, Locate(donut, geom.Coord{150, 50}))
}

func TestContains(t *testing.T) {
	t.Parallel()

	park := squarePark("P", 0, 0, 100, 100).Geometry
	holed := geom.NewMultiPolygon(geom.XY)
	require.NoError(t, holed.Push(geom.NewPolygonFlat(geom.XY, []float64{
		0, 0, 100, 0, 100, 100, 0, 100, 0, 0,
		40, 40, 60, 40, 60, 60, 40, 60, 40, 40,
	}, []int{10, 20})))

	tests := []struct {
		name string
		park *geom.MultiPolygon
		g    geom.T
		want bool
	}{
		{"point inside", park, point(5, 5), true},
		{"point on boundary", park, point(0, 5), false},
		{"point outside", park, point(200, 50), false},
		{"polygon inside", park, squarePolygon(10, 10, 20, 20), true},
		{"polygon sharing edge", park, squarePolygon(0, 10, 20, 20), true},
		{"polygon crossing", park, squarePolygon(90, 90, 110, 110), false},
		{"polygon equal", park, squarePolygon(0, 0, 100, 100), true},
		{"polygon around hole", holed, squarePolygon(30, 30, 70, 70), false},
		{"polygon in hole", holed, squarePolygon(45, 45, 55, 55), false},
		{"polygon beside hole", holed, squarePolygon(5, 5, 30, 30), true},
		{"nil park", nil, point(5, 5), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Contains(tt.park, tt.g))
		})
	}
}

func TestBoundaryDistance(t *testing.T) {
	t.Parallel()

	park := squarePark("P", 0, 0, 100, 100).Geometry
	assert.InDelta(t, 5.0, BoundaryDistance(park, geom.Coord{5, 50}), 1e-9)
	assert.InDelta(t, 100.0, BoundaryDistance(park, geom.Coord{200, 50}), 1e-9)
	assert.InDelta(t, 50.0, BoundaryDistance(park, geom.Coord{50, 50}), 1e-9)

	assert.InDelta(t, 10.0, GeometryBoundaryDistance(park, squarePolygon(110, 0, 120, 10)), 1e-9)
	assert.InDelta(t, 0.0, GeometryBoundaryDistance(park, squarePolygon(90, 90, 110, 110)), 1e-9)
	assert.InDelta(t, 100.0, GeometryBoundaryDistance(park, point(200, 50)), 1e-9)
}

func TestNearestTieBreak(t *testing.T) {
	t.Parallel()

	parks := []model.Park{
		squarePark("A", 50, -5, 60, 5),
		squarePark("B", -40, -5, -30, 5),
		squarePark("C", -5, 30, 5, 40),
	}
	e := NewEngine(parks, 1e15, DistanceCentroid)
	rel, err := e.Nearest(point(0, 0))
	require.NoError(t, err)
	assert.Equal(t, 1, rel.Index)
	assert.Equal(t, "B", rel.Park.Name)
	assert.InDelta(t, 30.0, rel.Distance, 1e-9)
	assert.Equal(t, model.LocationBoundary, rel.Location)
	assert.Equal(t, 3, e.Len())
}

func TestNearestContainmentSign(t *testing.T) {
	t.Parallel()

	e := NewEngine([]model.Park{squarePark("P", 0, 0, 100, 100)}, 1e15, DistanceCentroid)

	inside, err := e.Nearest(point(5, 50))
	require.NoError(t, err)
	assert.Equal(t, model.LocationInside, inside.Location)
	assert.InDelta(t, -5.0, inside.SignedDistance(), 1e-9)

	outside, err := e.Nearest(point(200, 50))
	require.NoError(t, err)
	assert.Equal(t, model.LocationBoundary, outside.Location)
	assert.InDelta(t, 100.0, outside.SignedDistance(), 1e-9)
}

func TestNearestGeometryMode(t *testing.T) {
	t.Parallel()

	parks := []model.Park{squarePark("far", 300, 0, 400, 100), squarePark("near", 0, 0, 100, 100)}
	e := NewEngine(parks, math.Inf(1), DistanceGeometry)

	rel, err := e.Nearest(squarePolygon(110, 0, 120, 10))
	require.NoError(t, err)
	assert.Equal(t, "near", rel.Park.Name)
	assert.InDelta(t, 10.0, rel.Distance, 1e-9)

	centroid := NewEngine(parks, math.Inf(1), DistanceCentroid)
	rel, err = centroid.Nearest(squarePolygon(110, 0, 120, 10))
	require.NoError(t, err)
	assert.InDelta(t, 15.0, rel.Distance, 1e-9)
}

func TestNearestUnresolved(t *testing.T) {
	t.Parallel()

	_, err := NewEngine(nil, 1e15, DistanceCentroid).Nearest(point(0, 0))
	assert.True(t, errors.Is(err, ErrNoParks))

	_, err = NewEngine([]model.Park{squarePark("P", 0, 0, 100, 100)}, 10, DistanceCentroid).Nearest(point(200, 50))
	assert.True(t, errors.Is(err, ErrUnresolved))
}

func TestParseDistanceMode(t *testing.T) {
	t.Parallel()

	m, err := ParseDistanceMode("Geometry")
	require.NoError(t, err)
	assert.Equal(t, DistanceGeometry, m)
	assert.Equal(t, "geometry", m.String())

	m, err = ParseDistanceMode("")
	require.NoError(t, err)
	assert.Equal(t, DistanceCentroid, m)

	_, err = ParseDistanceMode("hausdorff")
	assert.Error(t, err)
}

func TestCentroidAndArea(t *testing.T) {
	t.Parallel()

	c, err := Centroid(squarePolygon(0, 0, 10, 20))
	require.NoError(t, err)
	assert.InDelta(t, 5.0, c[0], 1e-9)
	assert.InDelta(t, 10.0, c[1], 1e-9)

	c, err = Centroid(point(3, 4))
	require.NoError(t, err)
	assert.Equal(t, geom.Coord{3, 4}, c)

	_, err = Centroid(nil)
	assert.Error(t, err)

	assert.InDelta(t, 200.0, Area(squarePolygon(0, 0, 10, 20)), 1e-9)
	assert.InDelta(t, 0.0, Area(point(1, 1)), 1e-9)
}
