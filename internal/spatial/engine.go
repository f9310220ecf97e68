package spatial

import (
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"

	"github.com/sells-group/parkprofile/internal/model"
)

// Sentinel errors for entities with no park relation. Both are recoverable.
var (
	ErrNoParks    = eris.New("spatial: no parks supplied")
	ErrUnresolved = eris.New("spatial: no park within search distance")
)

// Relation is the nearest park of an entity.
type Relation struct {
	Park     *model.Park
	Index    int
	Location model.Location
	Distance float64
}

// SignedDistance is negative when the entity is inside the park.
func (r *Relation) SignedDistance() float64 {
	if r.Location == model.LocationInside {
		return -r.Distance
	}
	return r.Distance
}

// Engine finds the nearest park by scanning parks in input order.
type Engine struct {
	parks   []model.Park
	minDist float64
	mode    DistanceMode
}

// NewEngine creates an engine. minDist is the initial best distance; a
// park is only selected when strictly closer.
func NewEngine(parks []model.Park, minDist float64, mode DistanceMode) *Engine {
	return &Engine{parks: parks, minDist: minDist, mode: mode}
}

// Len returns the number of parks.
func (e *Engine) Len() int {
	return len(e.parks)
}

// Nearest returns the park whose boundary is closest to g. Ties keep the
// first park scanned.
func (e *Engine) Nearest(g geom.T) (*Relation, error) {
	if len(e.parks) == 0 {
		return nil, ErrNoParks
	}

	var ref geom.Coord
	if e.mode == DistanceCentroid {
		c, err := Centroid(g)
		if err != nil {
			return nil, err
		}
		ref = c
	}

	best := e.minDist
	idx := -1
	for i := range e.parks {
		p := e.parks[i].Geometry
		if p == nil || p.NumPolygons() == 0 {
			continue
		}
		var d float64
		if e.mode == DistanceCentroid {
			d = BoundaryDistance(p, ref)
		} else {
			d = GeometryBoundaryDistance(p, g)
		}
		if d < best {
			best = d
			idx = i
		}
	}
	if idx < 0 {
		return nil, ErrUnresolved
	}

	park := &e.parks[idx]
	loc := model.LocationBoundary
	if Contains(park.Geometry, g) {
		loc = model.LocationInside
	}
	return &Relation{Park: park, Index: idx, Location: loc, Distance: best}, nil
}
