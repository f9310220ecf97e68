// Package gdal reads GeoTIFF layers through GDAL.
package gdal

import (
	"sync"

	"github.com/airbusgeo/godal"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/parkprofile/internal/raster"
)

var registerOnce sync.Once

// Source is a raster.Source backed by the first band of a GDAL dataset.
// Reads are serialized because a GDAL dataset handle is not safe for
// concurrent use.
type Source struct {
	path string
	info raster.Info

	mu sync.Mutex
	ds *godal.Dataset
}

// Open opens path and reads its geotransform and no-data value.
func Open(path string) (*Source, error) {
	registerOnce.Do(godal.RegisterAll)

	ds, err := godal.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "gdal: open %s", path)
	}

	info, err := describe(ds)
	if err != nil {
		_ = ds.Close()
		return nil, eris.Wrapf(err, "gdal: describe %s", path)
	}

	zap.L().With(zap.String("component", "raster.gdal")).Debug("opened raster",
		zap.String("path", path),
		zap.Int("cols", info.Cols),
		zap.Int("rows", info.Rows),
		zap.Float64("pixel_width", info.PixelWidth),
		zap.Bool("has_nodata", info.HasNoData),
	)

	return &Source{path: path, info: info, ds: ds}, nil
}

func describe(ds *godal.Dataset) (raster.Info, error) {
	gt, err := ds.GeoTransform()
	if err != nil {
		return raster.Info{}, eris.Wrap(err, "geotransform")
	}
	if gt[2] != 0 || gt[4] != 0 {
		return raster.Info{}, eris.New("rotated rasters are not supported")
	}
	if gt[5] >= 0 {
		return raster.Info{}, eris.New("raster is not north-up")
	}

	st := ds.Structure()
	bands := ds.Bands()
	if len(bands) == 0 {
		return raster.Info{}, eris.New("raster has no bands")
	}

	info := raster.Info{
		OriginX:     gt[0],
		OriginY:     gt[3],
		PixelWidth:  gt[1],
		PixelHeight: -gt[5],
		Cols:        st.SizeX,
		Rows:        st.SizeY,
	}
	if nd, ok := bands[0].NoData(); ok {
		info.NoData = nd
		info.HasNoData = true
	}
	return info, info.Validate()
}

// Path returns the dataset path.
func (s *Source) Path() string {
	return s.path
}

// Describe implements raster.Source.
func (s *Source) Describe() raster.Info {
	return s.info
}

// ReadWindow implements raster.Source.
func (s *Source) ReadWindow(w raster.Window) (*raster.Layer, error) {
	if w.Empty() {
		return nil, eris.Errorf("gdal: empty window on %s", s.path)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ds == nil {
		return nil, eris.Errorf("gdal: %s is closed", s.path)
	}

	buf := make([]float64, w.Cols*w.Rows)
	band := s.ds.Bands()[0]
	if err := band.Read(w.Col, w.Row, buf, w.Cols, w.Rows); err != nil {
		return nil, eris.Wrapf(err, "gdal: read %s window %+v", s.path, w)
	}
	return raster.NewLayer(s.info.Sub(w), buf)
}

// Close releases the dataset.
func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ds == nil {
		return nil
	}
	err := s.ds.Close()
	s.ds = nil
	if err != nil {
		return eris.Wrapf(err, "gdal: close %s", s.path)
	}
	return nil
}
