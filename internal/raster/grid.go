// Package raster holds single-band grids in geographic coordinates and reads and
// writes them as ESRI ASCII grids.
package raster

import (
	"math"

	"github.com/rotisserie/eris"
)

// Grid is a north-up single-band raster. Values are row-major with row 0 at the top.
type Grid struct {
	Cols      int
	Rows      int
	XMin      float64 // west edge
	YMin      float64 // south edge
	CellSize  float64
	NoData    float64
	HasNoData bool
	Values    []float64
}

// New allocates a grid filled with nodata.
func New(cols, rows int, xmin, ymin, cellSize, nodata float64) (*Grid, error) {
	if cols <= 0 || rows <= 0 {
		return nil, eris.Errorf("raster: invalid dimensions %dx%d", cols, rows)
	}
	if cellSize <= 0 || math.IsNaN(cellSize) {
		return nil, eris.Errorf("raster: invalid cell size %v", cellSize)
	}
	g := &Grid{
		Cols:      cols,
		Rows:      rows,
		XMin:      xmin,
		YMin:      ymin,
		CellSize:  cellSize,
		NoData:    nodata,
		HasNoData: true,
		Values:    make([]float64, cols*rows),
	}
	for i := range g.Values {
		g.Values[i] = nodata
	}
	return g, nil
}

// XMax returns the east edge.
func (g *Grid) XMax() float64 { return g.XMin + float64(g.Cols)*g.CellSize }

// YMax returns the north edge.
func (g *Grid) YMax() float64 { return g.YMin + float64(g.Rows)*g.CellSize }

// Cell returns the column and row holding (x, y). Points on the east or north
// edge belong to the last column or first row.
func (g *Grid) Cell(x, y float64) (col, row int, ok bool) {
	if x < g.XMin || x > g.XMax() || y < g.YMin || y > g.YMax() {
		return 0, 0, false
	}
	col = int(math.Floor((x - g.XMin) / g.CellSize))
	row = int(math.Floor((g.YMax() - y) / g.CellSize))
	if col == g.Cols {
		col--
	}
	if row == g.Rows {
		row--
	}
	return col, row, true
}

// Center returns the coordinates of a cell centre.
func (g *Grid) Center(col, row int) (x, y float64) {
	x = g.XMin + (float64(col)+0.5)*g.CellSize
	y = g.YMax() - (float64(row)+0.5)*g.CellSize
	return x, y
}

// Get returns the value at a cell; ok is false for nodata or out-of-range cells.
func (g *Grid) Get(col, row int) (float64, bool) {
	if col < 0 || col >= g.Cols || row < 0 || row >= g.Rows {
		return 0, false
	}
	v := g.Values[row*g.Cols+col]
	if g.isNoData(v) {
		return 0, false
	}
	return v, true
}

// Set stores v at a cell. Out-of-range cells are ignored.
func (g *Grid) Set(col, row int, v float64) {
	if col < 0 || col >= g.Cols || row < 0 || row >= g.Rows {
		return
	}
	g.Values[row*g.Cols+col] = v
}

// At samples the cell containing (x, y).
func (g *Grid) At(x, y float64) (float64, bool) {
	col, row, ok := g.Cell(x, y)
	if !ok {
		return 0, false
	}
	return g.Get(col, row)
}

func (g *Grid) isNoData(v float64) bool {
	if math.IsNaN(v) {
		return true
	}
	return g.HasNoData && v == g.NoData
}
