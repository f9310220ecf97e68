package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/parkprofile/internal/export"
	"github.com/sells-group/parkprofile/internal/model"
	"github.com/sells-group/parkprofile/internal/profile"
	"github.com/sells-group/parkprofile/internal/store"
	"github.com/sells-group/parkprofile/internal/vector"
)

// countryOptions are the flags of the countries command.
type countryOptions struct {
	AOI             string
	LandusePolygons string
	Anopheles       string
	Strategy        string
	Out             string
	Format          string
	Population      bool
}

var countryFlags countryOptions

var countriesCmd = &cobra.Command{
	Use:   "countries",
	Short: "Profile land use of countries",
	Long:  "Aggregates the land-use raster over each country of an area of interest, either one row per habitat patch (duplicate) or one pivoted row per country (append).",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("countries"); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		run, err := runCountries(ctx, st, countryFlags)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "run %s: %d rows written to %s\n", run.ID, run.Summary.Rows, run.Summary.OutputPath)
		return nil
	},
}

func init() {
	f := countriesCmd.Flags()
	f.StringVar(&countryFlags.AOI, "aoi", "", "country polygon shapefile")
	f.StringVar(&countryFlags.LandusePolygons, "landuse-polygons", "", "polygonized land-use patches (required by the duplicate strategy)")
	f.StringVar(&countryFlags.Anopheles, "anopheles", "", "anopheles catch site point shapefile")
	f.StringVar(&countryFlags.Strategy, "strategy", "", "join strategy: duplicate or append (default from config)")
	f.StringVar(&countryFlags.Out, "out", "", "output path (default <aoi>_profiles.<format>)")
	f.StringVar(&countryFlags.Format, "format", "xlsx", "output format (xlsx, csv, shp)")
	f.BoolVar(&countryFlags.Population, "population", false, "add population sum and density columns")
	_ = countriesCmd.MarkFlagRequired("aoi")
	rootCmd.AddCommand(countriesCmd)
}

// runCountries profiles the countries of o and records the run in st.
func runCountries(ctx context.Context, st store.Store, o countryOptions) (*model.Run, error) {
	if o.AOI == "" {
		return nil, eris.New("countries: --aoi is required")
	}
	strategyName := o.Strategy
	if strategyName == "" {
		strategyName = cfg.Profile.CountryStrategy
	}
	strategy, err := model.ParseJoinStrategy(strategyName)
	if err != nil {
		return nil, err
	}
	if strategy == model.JoinDuplicate && o.LandusePolygons == "" {
		return nil, eris.New("countries: --landuse-polygons is required by the duplicate strategy")
	}
	format, err := export.ParseFormat(o.Format)
	if err != nil {
		return nil, err
	}
	opts, err := profileOptions(cfg.Profile)
	if err != nil {
		return nil, err
	}

	out := o.Out
	if out == "" {
		out = export.DefaultPath(o.AOI, format)
	}

	job := profileJob{
		mode: model.RunModeCountries,
		params: map[string]any{
			"aoi":              o.AOI,
			"landuse_polygons": o.LandusePolygons,
			"anopheles":        o.Anopheles,
			"strategy":         strategy.String(),
			"population":       o.Population,
			"format":           string(format),
		},
		out:    out,
		format: format,
		run: func(ctx context.Context, t *tracker, in *inputs) (*profile.Result, error) {
			ci, err := loadCountryInput(in, o, strategy)
			if err != nil {
				return nil, err
			}
			t.advance(ctx, model.RunStatusProfiling)
			res, _, err := profile.CountriesProfile(ctx, ci, opts)
			return res, err
		},
	}
	return execute(ctx, st, job)
}

// loadCountryInput reads the vector inputs and opens the land-use raster,
// plus population when requested.
func loadCountryInput(in *inputs, o countryOptions, strategy model.JoinStrategy) (profile.CountryInput, error) {
	ci := profile.CountryInput{SourcePath: o.AOI, Strategy: strategy}
	read := func(path string) (*vector.Layer, error) {
		return vector.Read(path, vector.Options{Encoding: cfg.Profile.Encoding})
	}

	aoi, err := read(o.AOI)
	if err != nil {
		return ci, err
	}
	ci.Countries = aoi.Records
	ci.Fields = aoi.Fields

	if strategy == model.JoinDuplicate {
		habitats, err := read(o.LandusePolygons)
		if err != nil {
			return ci, err
		}
		ci.Habitats = habitats.Records
	}
	if o.Anopheles != "" {
		catches, err := read(o.Anopheles)
		if err != nil {
			return ci, err
		}
		ci.Anopheles = catches.Records
	}

	if ci.Landuse, ci.Legend, err = in.categorical("landuse", cfg.Layers.Landuse); err != nil {
		return ci, err
	}
	if o.Population {
		if ci.Population, err = in.raster("population", cfg.Layers.Population); err != nil {
			return ci, err
		}
	}
	return ci, nil
}
