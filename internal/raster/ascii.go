package raster

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// Open reads an ESRI ASCII grid from path.
func Open(path string) (*Grid, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "raster: open %s", path)
	}
	defer func() { _ = f.Close() }()

	g, err := Read(f)
	if err != nil {
		return nil, eris.Wrapf(err, "raster: read %s", path)
	}
	return g, nil
}

// Read parses an ESRI ASCII grid. Header keys are case-insensitive; both
// xllcorner/yllcorner and xllcenter/yllcenter origins are accepted.
func Read(r io.Reader) (*Grid, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	sc.Split(bufio.ScanWords)

	header := make(map[string]float64, 6)
	var pending string
	for sc.Scan() {
		key := strings.ToLower(sc.Text())
		if !isHeaderKey(key) {
			pending = sc.Text()
			break
		}
		if !sc.Scan() {
			return nil, eris.Errorf("raster: header %s has no value", key)
		}
		v, err := strconv.ParseFloat(sc.Text(), 64)
		if err != nil {
			return nil, eris.Wrapf(err, "raster: header %s", key)
		}
		header[key] = v
	}

	for _, k := range []string{"ncols", "nrows", "cellsize"} {
		if _, ok := header[k]; !ok {
			return nil, eris.Errorf("raster: missing header %s", k)
		}
	}

	cell := header["cellsize"]
	xmin, okX := header["xllcorner"]
	if !okX {
		c, ok := header["xllcenter"]
		if !ok {
			return nil, eris.New("raster: missing header xllcorner")
		}
		xmin = c - cell/2
	}
	ymin, okY := header["yllcorner"]
	if !okY {
		c, ok := header["yllcenter"]
		if !ok {
			return nil, eris.New("raster: missing header yllcorner")
		}
		ymin = c - cell/2
	}

	nodata, hasNoData := header["nodata_value"]
	g, err := New(int(header["ncols"]), int(header["nrows"]), xmin, ymin, cell, nodata)
	if err != nil {
		return nil, err
	}
	g.HasNoData = hasNoData

	n := 0
	parse := func(tok string) error {
		if n >= len(g.Values) {
			return eris.Errorf("raster: more than %d values", len(g.Values))
		}
		v, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			return eris.Wrapf(err, "raster: value %d", n)
		}
		g.Values[n] = v
		n++
		return nil
	}

	if pending != "" {
		if err := parse(pending); err != nil {
			return nil, err
		}
	}
	for sc.Scan() {
		if err := parse(sc.Text()); err != nil {
			return nil, err
		}
	}
	if err := sc.Err(); err != nil {
		return nil, eris.Wrap(err, "raster: scan")
	}
	if n != len(g.Values) {
		return nil, eris.Errorf("raster: expected %d values, got %d", len(g.Values), n)
	}

	return g, nil
}

// Write encodes g as an ESRI ASCII grid with a corner origin.
func Write(w io.Writer, g *Grid) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "ncols %d\nnrows %d\n", g.Cols, g.Rows)
	fmt.Fprintf(bw, "xllcorner %s\nyllcorner %s\n", formatFloat(g.XMin), formatFloat(g.YMin))
	fmt.Fprintf(bw, "cellsize %s\n", formatFloat(g.CellSize))
	if g.HasNoData {
		fmt.Fprintf(bw, "NODATA_value %s\n", formatFloat(g.NoData))
	}
	for row := 0; row < g.Rows; row++ {
		for col := 0; col < g.Cols; col++ {
			if col > 0 {
				_ = bw.WriteByte(' ')
			}
			_, _ = bw.WriteString(formatFloat(g.Values[row*g.Cols+col]))
		}
		_ = bw.WriteByte('\n')
	}
	return eris.Wrap(bw.Flush(), "raster: write")
}

func isHeaderKey(k string) bool {
	switch k {
	case "ncols", "nrows", "xllcorner", "yllcorner", "xllcenter", "yllcenter", "cellsize", "nodata_value":
		return true
	}
	return false
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
