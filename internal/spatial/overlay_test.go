package spatial

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
)

func TestBuffer(t *testing.T) {
	t.Parallel()

	g, err := Buffer(point(0, 0), 10)
	require.NoError(t, err)
	assert.InDelta(t, math.Pi*100, Area(g), 2)

	b := g.Bounds()
	assert.InDelta(t, -10.0, b.Min(0), 1e-6)
	assert.InDelta(t, 10.0, b.Max(1), 1e-6)

	_, err = Buffer(nil, 10)
	assert.Error(t, err)
}

func TestIntersection(t *testing.T) {
	t.Parallel()

	mp, err := Intersection(squarePolygon(0, 0, 10, 10), squarePolygon(5, 5, 15, 15))
	require.NoError(t, err)
	require.NotNil(t, mp)
	assert.InDelta(t, 25.0, mp.Area(), 1e-9)

	mp, err = Intersection(squarePolygon(0, 0, 10, 10), squarePolygon(20, 20, 30, 30))
	require.NoError(t, err)
	assert.Nil(t, mp)

	// touching squares share only an edge
	mp, err = Intersection(squarePolygon(0, 0, 10, 10), squarePolygon(10, 0, 20, 10))
	require.NoError(t, err)
	assert.Nil(t, mp)
}

func TestPolygons(t *testing.T) {
	t.Parallel()

	gc := geom.NewGeometryCollection()
	require.NoError(t, gc.Push(point(1, 1), squarePolygon(0, 0, 1, 1), geom.NewLineStringFlat(geom.XY, []float64{0, 0, 1, 1})))
	mp := Polygons(gc)
	require.NotNil(t, mp)
	assert.Equal(t, 1, mp.NumPolygons())

	assert.Nil(t, Polygons(point(0, 0)))
}
