package profile

import (
	"context"
	"errors"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy/location"
	"go.uber.org/zap"

	"github.com/sells-group/parkprofile/internal/aggregate"
	"github.com/sells-group/parkprofile/internal/legend"
	"github.com/sells-group/parkprofile/internal/model"
	"github.com/sells-group/parkprofile/internal/raster"
	"github.com/sells-group/parkprofile/internal/spatial"
	"github.com/sells-group/parkprofile/internal/table"
)

// Country profile columns.
const (
	ColHabitat     = "HAB"
	ColHabitatProp = "HAB_PROP"
	ColHabitatArea = "HAB_AREA"
	ColCatchSite   = "CATCH_SITE"
	ColSpecieDiv   = "SPECIE_DIV"
	ColSumPop      = "SUM_POP"
	ColDensPop     = "DENS_POP"
)

// CountryInput gathers the layers of a country profile.
type CountryInput struct {
	// SourcePath is the AOI file the countries were read from.
	SourcePath string
	Countries  []model.Record
	Fields     []string
	Landuse    raster.Source
	Legend     *legend.Legend
	// Habitats are the polygonized land-use patches intersected with each
	// country in the duplicate strategy.
	Habitats []model.Record
	// Anopheles are optional catch site points.
	Anopheles []model.Record
	// Population is optional.
	Population raster.Source
	Strategy   model.JoinStrategy
}

// CountriesProfile profiles every country. It returns the result and the
// AOI source path.
func CountriesProfile(ctx context.Context, in CountryInput, opts Options) (*Result, string, error) {
	opts = opts.withDefaults()
	if in.Landuse == nil {
		return nil, in.SourcePath, eris.New("profile: countries need a land-use raster")
	}

	c := &countries{
		in:     in,
		opts:   opts,
		layer:  Landuse(in.Landuse, in.Legend),
		log:    logger("profile.countries"),
		bounds: make([]*geom.Bounds, len(in.Habitats)),
	}
	for i, h := range in.Habitats {
		if h.Geometry != nil {
			c.bounds[i] = h.Geometry.Bounds()
		}
	}

	perCountry := make([][]entityRow, len(in.Countries))
	audits := make([]*Audit, len(in.Countries))
	err := forEach(ctx, len(in.Countries), opts.Workers, func(_ context.Context, i int) error {
		rows, audit, err := c.profileCountry(&in.Countries[i])
		if err != nil {
			return err
		}
		perCountry[i], audits[i] = rows, audit
		return nil
	})
	if err != nil {
		return nil, in.SourcePath, err
	}

	var rows []entityRow
	for _, rs := range perCountry {
		for _, r := range rs {
			r.row.Key = len(rows)
			rows = append(rows, r)
		}
	}

	tb := table.New(in.Fields...)
	var trailing []string
	if in.Population != nil {
		trailing = append(trailing, ColSumPop, ColDensPop)
	}
	if len(in.Anopheles) > 0 {
		trailing = append(trailing, ColCatchSite, ColSpecieDiv)
	}
	if in.Strategy == model.JoinAppend {
		finishTable(tb, rows, []*CategoricalLayer{c.layer}, "", trailing...)
	} else {
		tb.AddColumn(ColHabitat)
		tb.AddColumn(ColHabitatProp)
		tb.AddColumn(ColHabitatArea)
		finishTable(tb, rows, nil, "", trailing...)
	}

	audit := newAudit()
	for _, a := range audits {
		audit.Merge(a)
	}
	c.log.Info("country profile complete",
		zap.String("strategy", in.Strategy.String()),
		zap.Int("countries", len(in.Countries)),
		zap.Int("rows", tb.Len()),
		zap.Int("nulled", audit.Nulled),
		zap.Any("unknown_codes", audit.UnknownCodes),
	)
	return &Result{Table: tb, Audit: audit}, in.SourcePath, nil
}

type countries struct {
	in     CountryInput
	opts   Options
	layer  *CategoricalLayer
	log    *zap.Logger
	bounds []*geom.Bounds
}

func (c *countries) profileCountry(rec *model.Record) ([]entityRow, *Audit, error) {
	audit := newAudit()
	audit.Entities = 1

	stage := StagePending
	fail := func(err error) error {
		return eris.Wrapf(err, "profile: country %d (%s) at stage %s", rec.Index, rec.ID, stage)
	}

	area := spatial.Polygons(rec.Geometry)
	if area == nil {
		return nil, nil, fail(eris.New("geometry is not polygonal"))
	}
	countryArea := area.Area()

	base := func() entityRow {
		r := entityRow{row: table.NewRow(rec.Index), categorical: make(map[string]categoricalCells)}
		r.row.Geometry = rec.Geometry
		for _, f := range c.in.Fields {
			r.row.Set(f, rec.Attr(f))
		}
		return r
	}

	if c.in.Strategy == model.JoinAppend {
		r := base()
		clip, err := c.clip(rec, c.in.Landuse, area)
		if err != nil {
			return nil, nil, fail(err)
		}
		stage = StageLayersClipped
		if err := c.categorize(r, clip, audit); err != nil {
			return nil, nil, fail(err)
		}
		stage = StageAggregated
		if err := c.extras(rec, r, area, countryArea, audit); err != nil {
			return nil, nil, fail(err)
		}
		return []entityRow{r}, audit, nil
	}

	var rows []entityRow
	failed := false
	b := area.Bounds()
	for i, h := range c.in.Habitats {
		if c.bounds[i] == nil || !b.Overlaps(geom.XY, c.bounds[i]) {
			continue
		}
		part, err := spatial.Intersection(area, h.Geometry)
		if err != nil {
			c.log.Warn("skipping habitat patch",
				zap.Int("country", rec.Index), zap.Int("habitat", h.Index), zap.Error(err))
			audit.null(c.layer.Name)
			failed = true
			continue
		}
		if part == nil {
			continue
		}

		r := base()
		clip, err := c.clip(rec, c.in.Landuse, part)
		if err != nil {
			return nil, nil, fail(err)
		}
		stage = StageLayersClipped
		if err := c.dominant(r, clip, countryArea, audit); err != nil {
			return nil, nil, fail(err)
		}
		stage = StageAggregated
		if err := c.extras(rec, r, part, countryArea, audit); err != nil {
			return nil, nil, fail(err)
		}
		rows = append(rows, r)
	}

	if len(rows) == 0 {
		r := base()
		r.row.Set(ColHabitat, nil)
		r.row.Set(ColHabitatProp, nil)
		r.row.Set(ColHabitatArea, nil)
		if !failed {
			audit.null(c.layer.Name)
		}
		if err := c.extras(rec, r, area, countryArea, audit); err != nil {
			return nil, nil, fail(err)
		}
		rows = append(rows, r)
	}
	return rows, audit, nil
}

// dominant writes the largest category of a habitat patch.
func (c *countries) dominant(r entityRow, clip *raster.Layer, countryArea float64, audit *Audit) error {
	r.row.Set(ColHabitat, nil)
	r.row.Set(ColHabitatProp, nil)
	r.row.Set(ColHabitatArea, nil)
	if clip == nil {
		audit.null(c.layer.Name)
		return nil
	}

	cats, err := aggregate.Categorize(clip, c.layer.Legend)
	if errors.Is(err, aggregate.ErrEmptyAggregate) {
		audit.null(c.layer.Name)
		return nil
	}
	if err != nil {
		return err
	}
	audit.unknown(c.layer.Name, cats.Unknown())

	d := cats.Dominant()
	r.row.Set(ColHabitat, d.Label)
	r.row.Set(ColHabitatArea, aggregate.Round(d.Area, 3))
	if countryArea > 0 {
		r.row.Set(ColHabitatProp, aggregate.Round(d.Area*100/countryArea, 3))
	}
	return nil
}

// categorize writes the habitat diversity and pivoted label percentages.
func (c *countries) categorize(r entityRow, clip *raster.Layer, audit *Audit) error {
	l := c.layer
	cells := categoricalCells{}
	defer func() { r.categorical[l.Name] = cells }()

	if clip == nil {
		audit.null(l.Name)
		r.row.Set(l.DiversityColumn, nil)
		return nil
	}
	cats, err := aggregate.Categorize(clip, l.Legend)
	if errors.Is(err, aggregate.ErrEmptyAggregate) {
		audit.null(l.Name)
		r.row.Set(l.DiversityColumn, 0)
		return nil
	}
	if err != nil {
		return err
	}

	r.row.Set(l.DiversityColumn, cats.Diversity())
	for label, pct := range cats.Pivot() {
		r.row.Set(l.LabelColumn(label), pct)
		cells.labels = append(cells.labels, label)
	}
	cells.counted = true
	audit.unknown(l.Name, cats.Unknown())
	return nil
}

// extras writes population and catch site columns when those layers are
// present.
func (c *countries) extras(rec *model.Record, r entityRow, area *geom.MultiPolygon, countryArea float64, audit *Audit) error {
	if c.in.Population != nil {
		clip, err := c.clip(rec, c.in.Population, area)
		if err != nil {
			return err
		}
		if clip == nil {
			audit.null("population")
			r.row.Set(ColSumPop, nil)
			r.row.Set(ColDensPop, nil)
		} else {
			sum := aggregate.Summarize(clip).Sum
			r.row.Set(ColSumPop, aggregate.Round(sum, 3))
			if countryArea > 0 {
				r.row.Set(ColDensPop, sum/countryArea)
			}
		}
	}

	if len(c.in.Anopheles) > 0 {
		sites, div := CatchSites(c.in.Anopheles, area, c.opts.OtherSpeciesField)
		r.row.Set(ColCatchSite, sites)
		r.row.Set(ColSpecieDiv, div)
	}
	return nil
}

func (c *countries) clip(rec *model.Record, src raster.Source, area geom.T) (*raster.Layer, error) {
	l, err := raster.Clip(src, area)
	if errors.Is(err, raster.ErrNoOverlap) {
		c.log.Debug("layer does not overlap country",
			zap.Int("index", rec.Index), zap.String("id", rec.ID))
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return l, nil
}

// CatchSites counts the points inside area and the highest species
// diversity among them.
func CatchSites(points []model.Record, area *geom.MultiPolygon, otherField string) (int, int) {
	sites, best := 0, 0
	for i := range points {
		var coord geom.Coord
		switch g := points[i].Geometry.(type) {
		case *geom.Point:
			coord = g.Coords()
		case *geom.MultiPoint:
			if g.NumPoints() == 0 {
				continue
			}
			coord = g.Point(0).Coords()
		default:
			continue
		}
		if spatial.LocateMulti(area, coord) == location.Exterior {
			continue
		}
		sites++
		if d := model.SpeciesDiversity(points[i].Attributes, otherField); d > best {
			best = d
		}
	}
	return sites, best
}
