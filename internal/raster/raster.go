// Package raster models gridded layers and clips them to geometries.
package raster

import (
	"math"

	"github.com/golang/geo/r1"
	"github.com/golang/geo/r2"
	"github.com/rotisserie/eris"
)

// Info describes a north-up grid. OriginX/OriginY is the top-left corner;
// PixelWidth and PixelHeight are positive cell sizes in CRS units.
type Info struct {
	OriginX     float64
	OriginY     float64
	PixelWidth  float64
	PixelHeight float64
	Cols        int
	Rows        int
	NoData      float64
	HasNoData   bool
}

// Bounds returns the grid extent.
func (i Info) Bounds() r2.Rect {
	return r2.Rect{
		X: r1.Interval{Lo: i.OriginX, Hi: i.OriginX + float64(i.Cols)*i.PixelWidth},
		Y: r1.Interval{Lo: i.OriginY - float64(i.Rows)*i.PixelHeight, Hi: i.OriginY},
	}
}

// PixelArea returns the area covered by one cell.
func (i Info) PixelArea() float64 {
	return i.PixelWidth * i.PixelHeight
}

// Valid reports whether v is a data cell. NaN is never valid.
func (i Info) Valid(v float64) bool {
	if math.IsNaN(v) {
		return false
	}
	if i.HasNoData && v == i.NoData {
		return false
	}
	return true
}

// Fill returns the value written to masked cells.
func (i Info) Fill() float64 {
	if i.HasNoData {
		return i.NoData
	}
	return math.NaN()
}

// CellCenter returns the CRS coordinate of the centre of (col, row).
func (i Info) CellCenter(col, row int) (float64, float64) {
	x := i.OriginX + (float64(col)+0.5)*i.PixelWidth
	y := i.OriginY - (float64(row)+0.5)*i.PixelHeight
	return x, y
}

// Validate checks that the grid is usable.
func (i Info) Validate() error {
	if i.PixelWidth <= 0 || i.PixelHeight <= 0 {
		return eris.Errorf("raster: invalid pixel size %gx%g", i.PixelWidth, i.PixelHeight)
	}
	if i.Cols < 0 || i.Rows < 0 {
		return eris.Errorf("raster: invalid grid size %dx%d", i.Cols, i.Rows)
	}
	return nil
}

// Window is a rectangular block of cells.
type Window struct {
	Col  int
	Row  int
	Cols int
	Rows int
}

// Empty reports whether the window has no cells.
func (w Window) Empty() bool {
	return w.Cols <= 0 || w.Rows <= 0
}

// WindowFor returns the block of cells covering rect. The second result is
// false when rect does not overlap the grid.
func (i Info) WindowFor(rect r2.Rect) (Window, bool) {
	b := i.Bounds()
	if !b.X.InteriorIntersects(rect.X) || !b.Y.InteriorIntersects(rect.Y) {
		return Window{}, false
	}

	c0 := int(math.Floor((rect.X.Lo - i.OriginX) / i.PixelWidth))
	c1 := int(math.Ceil((rect.X.Hi - i.OriginX) / i.PixelWidth))
	r0 := int(math.Floor((i.OriginY - rect.Y.Hi) / i.PixelHeight))
	r1 := int(math.Ceil((i.OriginY - rect.Y.Lo) / i.PixelHeight))
	if c1 <= c0 {
		c1 = c0 + 1
	}
	if r1 <= r0 {
		r1 = r0 + 1
	}

	c0, c1 = clamp(c0, 0, i.Cols), clamp(c1, 0, i.Cols)
	r0, r1 = clamp(r0, 0, i.Rows), clamp(r1, 0, i.Rows)

	w := Window{Col: c0, Row: r0, Cols: c1 - c0, Rows: r1 - r0}
	if w.Empty() {
		return Window{}, false
	}
	return w, true
}

// Sub returns the Info of a window of this grid.
func (i Info) Sub(w Window) Info {
	out := i
	out.OriginX = i.OriginX + float64(w.Col)*i.PixelWidth
	out.OriginY = i.OriginY - float64(w.Row)*i.PixelHeight
	out.Cols = w.Cols
	out.Rows = w.Rows
	return out
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
