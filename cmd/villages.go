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

// villageOptions are the flags of the villages command.
type villageOptions struct {
	Villages string
	Parks    string
	Out      string
	Format   string
	Buffers  []float64
	NoParks  bool
}

var villageFlags villageOptions

var villagesCmd = &cobra.Command{
	Use:   "villages",
	Short: "Profile villages within buffer radii",
	Long:  "Locates each village against the nearest national park and aggregates every raster layer within each buffer radius into one row per village.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("villages"); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		run, err := runVillages(ctx, st, villageFlags)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "run %s: %d rows written to %s\n", run.ID, run.Summary.Rows, run.Summary.OutputPath)
		return nil
	},
}

func init() {
	f := villagesCmd.Flags()
	f.StringVar(&villageFlags.Villages, "villages", "", "village point shapefile")
	f.StringVar(&villageFlags.Parks, "parks", "", "national park polygon shapefile")
	f.StringVar(&villageFlags.Out, "out", "", "output path (default <villages>_profiles.<format>)")
	f.StringVar(&villageFlags.Format, "format", "xlsx", "output format (xlsx, csv)")
	f.Float64SliceVar(&villageFlags.Buffers, "buffers", nil, "buffer radii in meters (default from config)")
	f.BoolVar(&villageFlags.NoParks, "no-parks", false, "skip the nearest park columns")
	_ = villagesCmd.MarkFlagRequired("villages")
	rootCmd.AddCommand(villagesCmd)
}

// runVillages profiles the villages of o and records the run in st.
func runVillages(ctx context.Context, st store.Store, o villageOptions) (*model.Run, error) {
	if o.Villages == "" {
		return nil, eris.New("villages: --villages is required")
	}
	if !o.NoParks && o.Parks == "" {
		return nil, eris.New("villages: --parks is required unless --no-parks is set")
	}
	format, err := export.ParseFormat(o.Format)
	if err != nil {
		return nil, err
	}
	if format == export.FormatShapefile {
		return nil, eris.New("villages: shapefile output holds polygons only; use xlsx or csv")
	}
	opts, err := profileOptions(cfg.Profile)
	if err != nil {
		return nil, err
	}

	buffers := o.Buffers
	if len(buffers) == 0 {
		buffers = cfg.Profile.BufferVillages
	}
	out := o.Out
	if out == "" {
		out = export.DefaultPath(o.Villages, format)
	}

	job := profileJob{
		mode: model.RunModeVillages,
		params: map[string]any{
			"villages":      o.Villages,
			"parks":         o.Parks,
			"buffers":       buffers,
			"locate":        !o.NoParks,
			"distance_mode": opts.DistanceMode.String(),
			"format":        string(format),
		},
		out:    out,
		format: format,
		run: func(ctx context.Context, t *tracker, in *inputs) (*profile.Result, error) {
			ui, err := loadVillageInput(in, o)
			if err != nil {
				return nil, err
			}
			t.advance(ctx, model.RunStatusProfiling)
			return profile.UrbanProfile(ctx, ui, buffers, opts)
		},
	}
	return execute(ctx, st, job)
}

// loadVillageInput reads the vector inputs and opens every configured
// raster layer.
func loadVillageInput(in *inputs, o villageOptions) (profile.UrbanInput, error) {
	var ui profile.UrbanInput

	layer, err := vector.Read(o.Villages, vector.Options{
		Encoding: cfg.Profile.Encoding,
		IDField:  cfg.Profile.IDField,
	})
	if err != nil {
		return ui, err
	}
	ui.Villages = layer.Records

	if !o.NoParks {
		if ui.Parks, err = vector.ReadParks(o.Parks, cfg.Profile.ParkNameField, cfg.Profile.Encoding); err != nil {
			return ui, err
		}
		ui.Locate = true
	}

	layers := cfg.Layers
	if ui.Population, err = in.raster("population", layers.Population); err != nil {
		return ui, err
	}
	if ui.Prevalence, err = in.raster("prevalence", layers.Prevalence); err != nil {
		return ui, err
	}
	if ui.SWI, err = in.raster("swi", layers.SWI); err != nil {
		return ui, err
	}
	if ui.NDVI, err = in.raster("ndvi", layers.NDVI); err != nil {
		return ui, err
	}
	if ui.Landuse, ui.LanduseLegend, err = in.categorical("landuse", layers.Landuse); err != nil {
		return ui, err
	}
	if ui.GWS, ui.GWSLegend, err = in.categorical("gws", layers.GWS); err != nil {
		return ui, err
	}
	return ui, nil
}
