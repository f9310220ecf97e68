package raster

import (
	"github.com/rotisserie/eris"
)

// Source provides windowed reads of a single-band raster.
type Source interface {
	Describe() Info
	ReadWindow(w Window) (*Layer, error)
}

// Layer is an in-memory grid of cell values stored row-major.
type Layer struct {
	Info Info
	Data []float64
}

// NewLayer creates a layer. data must hold Cols*Rows values.
func NewLayer(info Info, data []float64) (*Layer, error) {
	if err := info.Validate(); err != nil {
		return nil, err
	}
	if len(data) != info.Cols*info.Rows {
		return nil, eris.Errorf("raster: %d values for a %dx%d grid", len(data), info.Cols, info.Rows)
	}
	return &Layer{Info: info, Data: data}, nil
}

// Constant creates a layer where every cell holds v.
func Constant(info Info, v float64) *Layer {
	data := make([]float64, info.Cols*info.Rows)
	for i := range data {
		data[i] = v
	}
	return &Layer{Info: info, Data: data}
}

// At returns the value at (col, row).
func (l *Layer) At(col, row int) float64 {
	return l.Data[row*l.Info.Cols+col]
}

// Describe implements Source.
func (l *Layer) Describe() Info {
	return l.Info
}

// ReadWindow implements Source by copying the requested block.
func (l *Layer) ReadWindow(w Window) (*Layer, error) {
	if w.Col < 0 || w.Row < 0 || w.Col+w.Cols > l.Info.Cols || w.Row+w.Rows > l.Info.Rows {
		return nil, eris.Errorf("raster: window %+v outside %dx%d grid", w, l.Info.Cols, l.Info.Rows)
	}
	out := &Layer{Info: l.Info.Sub(w), Data: make([]float64, w.Cols*w.Rows)}
	for r := 0; r < w.Rows; r++ {
		src := (w.Row+r)*l.Info.Cols + w.Col
		copy(out.Data[r*w.Cols:(r+1)*w.Cols], l.Data[src:src+w.Cols])
	}
	return out, nil
}

// ValidCount returns the number of data cells.
func (l *Layer) ValidCount() int {
	n := 0
	for _, v := range l.Data {
		if l.Info.Valid(v) {
			n++
		}
	}
	return n
}
