package profile

import (
	"context"
	"errors"
	"slices"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/sells-group/parkprofile/internal/aggregate"
	"github.com/sells-group/parkprofile/internal/legend"
	"github.com/sells-group/parkprofile/internal/model"
	"github.com/sells-group/parkprofile/internal/raster"
	"github.com/sells-group/parkprofile/internal/spatial"
	"github.com/sells-group/parkprofile/internal/table"
)

// Villages profiles village entities around buffers of a given radius.
type Villages struct {
	records []model.Record
	engine  *spatial.Engine
	layers  Layers
	opts    Options
	log     *zap.Logger
}

// NewVillages creates a village assembler. A nil engine leaves the park
// columns empty.
func NewVillages(records []model.Record, engine *spatial.Engine, layers Layers, opts Options) *Villages {
	return &Villages{
		records: records,
		engine:  engine,
		layers:  layers,
		opts:    opts.withDefaults(),
		log:     logger("profile.villages"),
	}
}

// UrbanInput gathers the layers of a village profile. Nil sources are
// skipped.
type UrbanInput struct {
	Villages      []model.Record
	Parks         []model.Park
	Population    raster.Source
	Landuse       raster.Source
	LanduseLegend *legend.Legend
	NDVI          raster.Source
	SWI           raster.Source
	GWS           raster.Source
	GWSLegend     *legend.Legend
	Prevalence    raster.Source
	// Locate enables the nearest park columns.
	Locate bool
}

// UrbanProfile profiles every village for each buffer radius and merges
// the passes into one row per village.
func UrbanProfile(ctx context.Context, in UrbanInput, radii []float64, opts Options) (*Result, error) {
	opts = opts.withDefaults()

	var layers Layers
	if in.Population != nil {
		layers.AddContinuous(Population(in.Population))
	}
	if in.Prevalence != nil {
		layers.AddContinuous(Prevalence(in.Prevalence))
	}
	if in.SWI != nil {
		layers.AddContinuous(SWI(in.SWI))
	}
	if in.NDVI != nil {
		layers.AddContinuous(NDVI(in.NDVI))
	}
	if in.Landuse != nil {
		layers.AddCategorical(Landuse(in.Landuse, in.LanduseLegend))
	}
	if in.GWS != nil {
		layers.AddCategorical(GWS(in.GWS, in.GWSLegend))
	}

	var engine *spatial.Engine
	if in.Locate {
		engine = spatial.NewEngine(in.Parks, opts.MinDist, opts.DistanceMode)
	}
	return NewVillages(in.Villages, engine, layers, opts).ProfileBuffers(ctx, radii)
}

// ProfileBuffers runs one pass per radius, smallest first, and joins them
// on the village index. The identity columns of the smallest radius are
// kept unsuffixed; the other passes contribute only radius columns.
func (v *Villages) ProfileBuffers(ctx context.Context, radii []float64) (*Result, error) {
	if len(radii) == 0 {
		return nil, eris.New("profile: no buffer radius")
	}
	sorted := slices.Clone(radii)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)
	for _, r := range sorted {
		if r <= 0 {
			return nil, eris.Errorf("profile: invalid buffer radius %g", r)
		}
	}

	var merged *table.Table
	audit := newAudit()
	for i, radius := range sorted {
		res, err := v.Profile(ctx, radius)
		if err != nil {
			return nil, err
		}
		suffix := Suffix(radius)

		if i == 0 {
			rename := make(map[string]string, len(IdentityColumns))
			for _, c := range IdentityColumns {
				rename[c+suffix] = c
			}
			if err := res.Table.RenameColumns(rename); err != nil {
				return nil, eris.Wrap(err, "profile: rename identity columns")
			}
			merged = res.Table
			audit.Merge(res.Audit)
			continue
		}

		drop := make([]string, 0, len(IdentityColumns))
		for _, c := range IdentityColumns {
			drop = append(drop, c+suffix)
		}
		res.Table.DropColumns(drop...)
		if merged, err = table.MergeOnKey(merged, res.Table); err != nil {
			return nil, eris.Wrapf(err, "profile: merge buffer %g", radius)
		}
		// park relations are radius-invariant and counted once
		res.Audit.Unresolved = 0
		res.Audit.Entities = 0
		audit.Merge(res.Audit)
	}

	v.log.Info("village profile complete",
		zap.Int("villages", len(v.records)),
		zap.Float64s("radii", sorted),
		zap.Int("nulled", audit.Nulled),
		zap.Int("unresolved", audit.Unresolved),
		zap.Any("unknown_codes", audit.UnknownCodes),
	)
	return &Result{Table: merged, Audit: audit}, nil
}

// Profile runs a single pass with every column suffixed by the radius.
func (v *Villages) Profile(ctx context.Context, radius float64) (*Result, error) {
	suffix := Suffix(radius)
	rows := make([]entityRow, len(v.records))
	audits := make([]*Audit, len(v.records))

	err := forEach(ctx, len(v.records), v.opts.Workers, func(_ context.Context, i int) error {
		row, audit, err := v.profileVillage(&v.records[i], radius, suffix)
		if err != nil {
			return err
		}
		rows[i], audits[i] = row, audit
		return nil
	})
	if err != nil {
		return nil, err
	}

	tb := table.New()
	for _, c := range IdentityColumns {
		tb.AddColumn(c + suffix)
	}
	for _, l := range v.layers.Continuous {
		for _, c := range l.Columns {
			tb.AddColumn(c + suffix)
		}
	}
	finishTable(tb, rows, v.layers.Categorical, suffix)

	audit := newAudit()
	for _, a := range audits {
		audit.Merge(a)
	}
	return &Result{Table: tb, Audit: audit}, nil
}

func (v *Villages) profileVillage(rec *model.Record, radius float64, suffix string) (entityRow, *Audit, error) {
	audit := newAudit()
	audit.Entities = 1
	out := entityRow{row: table.NewRow(rec.Index), categorical: make(map[string]categoricalCells)}
	out.row.Geometry = rec.Geometry
	set := func(col string, val any) { out.row.Set(col+suffix, val) }

	stage := StagePending
	fail := func(err error) error {
		return eris.Wrapf(err, "profile: village %d (%s) at stage %s, buffer %g", rec.Index, rec.ID, stage, radius)
	}

	c, err := spatial.Centroid(rec.Geometry)
	if err != nil {
		return out, nil, fail(err)
	}
	set(ColID, rec.ID)
	set(ColX, c[0])
	set(ColY, c[1])

	if err := v.relate(rec, set, audit); err != nil {
		return out, nil, fail(err)
	}
	set(ColSpeciesDiv, model.SpeciesDiversity(rec.Attributes, v.opts.OtherSpeciesField))
	stage = StageParkRelation

	area, err := spatial.Buffer(rec.Geometry, radius)
	if err != nil {
		return out, nil, fail(err)
	}

	contClips := make([]*raster.Layer, len(v.layers.Continuous))
	for i, l := range v.layers.Continuous {
		if contClips[i], err = v.clip(rec, l.Name, l.Source, area, radius); err != nil {
			return out, nil, fail(err)
		}
	}
	catClips := make([]*raster.Layer, len(v.layers.Categorical))
	for i, l := range v.layers.Categorical {
		if catClips[i], err = v.clip(rec, l.Name, l.Source, area, radius); err != nil {
			return out, nil, fail(err)
		}
	}
	stage = StageLayersClipped

	for i, l := range v.layers.Continuous {
		if contClips[i] == nil {
			audit.null(l.Name)
			for _, col := range l.Columns {
				set(col, nil)
			}
			continue
		}
		values := l.Measure(aggregate.Summarize(contClips[i]))
		for j, col := range l.Columns {
			set(col, values[j])
		}
	}

	for i, l := range v.layers.Categorical {
		cells := categoricalCells{}
		if catClips[i] == nil {
			audit.null(l.Name)
			if l.DiversityColumn != "" {
				set(l.DiversityColumn, nil)
			}
			out.categorical[l.Name] = cells
			continue
		}

		cats, err := aggregate.Categorize(catClips[i], l.Legend)
		switch {
		case errors.Is(err, aggregate.ErrEmptyAggregate):
			audit.null(l.Name)
			v.log.Debug("empty categorical clip",
				zap.Int("index", rec.Index), zap.String("id", rec.ID),
				zap.String("layer", l.Name), zap.Float64("radius", radius))
			if l.DiversityColumn != "" {
				set(l.DiversityColumn, 0)
			}
		case err != nil:
			return out, nil, fail(err)
		default:
			if l.DiversityColumn != "" {
				set(l.DiversityColumn, cats.Diversity())
			}
			for label, pct := range cats.Pivot() {
				set(l.LabelColumn(label), pct)
				cells.labels = append(cells.labels, label)
			}
			cells.counted = true
			if n := cats.Unknown(); n > 0 {
				audit.unknown(l.Name, n)
				v.log.Debug("unresolved legend codes",
					zap.Int("index", rec.Index), zap.String("id", rec.ID),
					zap.String("layer", l.Name), zap.Int("codes", n))
			}
		}
		out.categorical[l.Name] = cells
	}
	return out, audit, nil
}

// relate fills the park columns. Missing relations leave them null.
func (v *Villages) relate(rec *model.Record, set func(string, any), audit *Audit) error {
	set(ColPark, nil)
	set(ColLocation, nil)
	set(ColDistance, nil)
	if v.engine == nil {
		return nil
	}

	rel, err := v.engine.Nearest(rec.Geometry)
	if errors.Is(err, spatial.ErrNoParks) || errors.Is(err, spatial.ErrUnresolved) {
		audit.Unresolved++
		v.log.Debug("no park relation",
			zap.Int("index", rec.Index), zap.String("id", rec.ID), zap.Error(err))
		return nil
	}
	if err != nil {
		return err
	}

	set(ColPark, rel.Park.Name)
	set(ColLocation, rel.Location.Label())
	set(ColDistance, aggregate.Round(rel.SignedDistance(), 3))
	return nil
}

// clip returns nil when the layer does not overlap the area.
func (v *Villages) clip(rec *model.Record, name string, src raster.Source, area geom.T, radius float64) (*raster.Layer, error) {
	l, err := raster.Clip(src, area)
	if errors.Is(err, raster.ErrNoOverlap) {
		v.log.Debug("layer does not overlap buffer",
			zap.Int("index", rec.Index), zap.String("id", rec.ID),
			zap.String("layer", name), zap.Float64("radius", radius))
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "clip %s", name)
	}
	return l, nil
}
