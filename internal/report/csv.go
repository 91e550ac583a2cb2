// Package report writes RWS results to disk and to the console.
package report

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/sells-group/rws-cli/internal/model"
	"github.com/sells-group/rws-cli/internal/rws"
)

// Trailer keys written after the ranked station lines.
const (
	KeyStationFile        = "station_file"
	KeyCropRasterFile     = "crop_raster_file"
	KeyPointsMethod       = "points_method"
	KeyOfficialZoneRaster = "official_zone_raster"
)

// FileName returns the result file name for a run.
func FileName(run, ext string) string {
	return "rws_" + rws.Slug(run) + ext
}

// FormatPercent renders a share with the shortest exact representation.
func FormatPercent(p float64) string {
	return strconv.FormatFloat(p, 'f', -1, 64)
}

// Records returns the result file rows: one per representative buffer in rank
// order, then the metadata trailer.
func Records(res *model.Result) [][]string {
	out := make([][]string, 0, len(res.Representative)+4)
	for _, b := range res.Representative {
		out = append(out, []string{b.Station, FormatPercent(b.Percent)})
	}
	return append(out,
		[]string{KeyStationFile, res.StationFile},
		[]string{KeyCropRasterFile, res.CropRasterFile},
		[]string{KeyPointsMethod, strconv.FormatBool(res.Method == model.MethodPoints)},
		[]string{KeyOfficialZoneRaster, strconv.FormatBool(res.OfficialZoneRaster)},
	)
}

// WriteCSV writes the result file into dir and returns its path.
func WriteCSV(dir string, res *model.Result) (string, error) {
	if res == nil {
		return "", eris.New("report: nil result")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", eris.Wrapf(err, "report: create %s", dir)
	}
	path := filepath.Join(dir, FileName(res.Run, ".csv"))

	f, err := os.Create(path)
	if err != nil {
		return "", eris.Wrapf(err, "report: create %s", path)
	}
	defer f.Close() //nolint:errcheck

	w := csv.NewWriter(f)
	if err := w.WriteAll(Records(res)); err != nil {
		return "", eris.Wrapf(err, "report: write %s", path)
	}
	return path, eris.Wrapf(f.Close(), "report: close %s", path)
}

// ReadCSV parses a result file back into ranked shares and trailer metadata.
func ReadCSV(path string) ([]model.BufferShare, map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, eris.Wrapf(err, "report: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	r := csv.NewReader(f)
	r.FieldsPerRecord = 2
	rows, err := r.ReadAll()
	if err != nil {
		return nil, nil, eris.Wrapf(err, "report: parse %s", path)
	}

	meta := make(map[string]string)
	var shares []model.BufferShare
	for _, row := range rows {
		switch row[0] {
		case KeyStationFile, KeyCropRasterFile, KeyPointsMethod, KeyOfficialZoneRaster:
			meta[row[0]] = row[1]
			continue
		}
		p, err := strconv.ParseFloat(row[1], 64)
		if err != nil {
			return nil, nil, eris.Wrapf(err, "report: percent for station %q", row[0])
		}
		shares = append(shares, model.BufferShare{Station: row[0], Percent: p})
	}
	return shares, meta, nil
}
