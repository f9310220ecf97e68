package main

import (
	"io"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/parkprofile/internal/config"
	"github.com/sells-group/parkprofile/internal/legend"
	"github.com/sells-group/parkprofile/internal/raster"
	"github.com/sells-group/parkprofile/internal/raster/gdal"
)

// rasterOpener opens a raster layer. Tests replace it with in-memory
// sources.
type rasterOpener func(path string) (raster.Source, io.Closer, error)

var openRaster rasterOpener = func(path string) (raster.Source, io.Closer, error) {
	src, err := gdal.Open(path)
	if err != nil {
		return nil, nil, err
	}
	return src, src, nil
}

// inputs tracks the rasters opened for one run so they can be released
// together.
type inputs struct {
	cfg     *config.Config
	closers []io.Closer
}

func newInputs(c *config.Config) *inputs {
	return &inputs{cfg: c}
}

// raster opens the layer at l.Path. An empty path disables the layer and
// returns a nil source.
func (in *inputs) raster(name string, l config.LayerConfig) (raster.Source, error) {
	if l.Path == "" {
		zap.L().Debug("layer disabled", zap.String("layer", name))
		return nil, nil
	}
	path := in.cfg.Resolve(l.Path)
	src, closer, err := openRaster(path)
	if err != nil {
		return nil, eris.Wrapf(err, "open %s layer", name)
	}
	if closer != nil {
		in.closers = append(in.closers, closer)
	}
	return src, nil
}

// categorical opens a raster together with its legend.
func (in *inputs) categorical(name string, l config.LayerConfig) (raster.Source, *legend.Legend, error) {
	src, err := in.raster(name, l)
	if err != nil || src == nil {
		return nil, nil, err
	}
	lg, err := legend.Load(in.cfg.LegendPath(l), l.LegendItem)
	if err != nil {
		return nil, nil, eris.Wrapf(err, "load %s legend", name)
	}
	return src, lg, nil
}

// Close releases every opened raster.
func (in *inputs) Close() {
	for _, c := range in.closers {
		if err := c.Close(); err != nil {
			zap.L().Warn("close raster", zap.Error(err))
		}
	}
	in.closers = nil
}
