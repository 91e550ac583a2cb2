package report

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/rws-cli/internal/model"
)

// Sheet names of the spreadsheet export.
const (
	SheetRWS      = "rws"
	SheetZones    = "zones"
	SheetMetadata = "metadata"
)

// WriteXLSX writes the spreadsheet export into dir and returns its path.
func WriteXLSX(dir string, res *model.Result) (string, error) {
	if res == nil {
		return "", eris.New("report: nil result")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", eris.Wrapf(err, "report: create %s", dir)
	}

	f := xlsx.NewFile()

	rwsSheet, err := f.AddSheet(SheetRWS)
	if err != nil {
		return "", eris.Wrap(err, "xlsx: add rws sheet")
	}
	addStrings(rwsSheet, "rank", "station", "zone", "percent")
	for i, b := range res.Representative {
		row := rwsSheet.AddRow()
		row.AddCell().SetInt(i + 1)
		row.AddCell().SetString(b.Station)
		row.AddCell().SetInt(b.Zone)
		row.AddCell().SetFloat(b.Percent)
	}

	zoneSheet, err := f.AddSheet(SheetZones)
	if err != nil {
		return "", eris.Wrap(err, "xlsx: add zones sheet")
	}
	dominant := make(map[int]bool, len(res.Dominant))
	for _, z := range res.Dominant {
		dominant[z.Zone] = true
	}
	addStrings(zoneSheet, "zone", "percent", "dominant")
	for _, z := range res.Zones {
		row := zoneSheet.AddRow()
		row.AddCell().SetInt(z.Zone)
		row.AddCell().SetFloat(z.Percent)
		row.AddCell().SetBool(dominant[z.Zone])
	}

	meta, err := f.AddSheet(SheetMetadata)
	if err != nil {
		return "", eris.Wrap(err, "xlsx: add metadata sheet")
	}
	addStrings(meta, "key", "value")
	for _, kv := range [][2]string{
		{"run", res.Run},
		{"country", res.Country},
		{"method", string(res.Method)},
		{KeyStationFile, res.StationFile},
		{KeyCropRasterFile, res.CropRasterFile},
		{KeyPointsMethod, strconv.FormatBool(res.Method == model.MethodPoints)},
		{KeyOfficialZoneRaster, strconv.FormatBool(res.OfficialZoneRaster)},
		{"stations", strconv.Itoa(res.Stations)},
		{"buffers", strconv.Itoa(res.Buffers)},
		{"national_total", FormatPercent(res.NationalTotal)},
		{"coverage", FormatPercent(res.Coverage)},
	} {
		addStrings(meta, kv[0], kv[1])
	}
	for _, w := range res.Warnings {
		addStrings(meta, "warning", string(w.Kind)+": "+w.Message)
	}

	path := filepath.Join(dir, FileName(res.Run, ".xlsx"))
	if err := f.Save(path); err != nil {
		return "", eris.Wrapf(err, "xlsx: save %s", path)
	}
	return path, nil
}

func addStrings(sheet *xlsx.Sheet, values ...string) {
	row := sheet.AddRow()
	for _, v := range values {
		row.AddCell().SetString(v)
	}
}

// ReadSheet returns every row of the named sheet as strings.
func ReadSheet(path, name string) ([][]string, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "xlsx: open file")
	}
	sheet, ok := f.Sheet[name]
	if !ok {
		return nil, eris.Errorf("xlsx: sheet %q not found", name)
	}

	rows := make([][]string, 0, len(sheet.Rows))
	for _, row := range sheet.Rows {
		cells := make([]string, len(row.Cells))
		for i, cell := range row.Cells {
			cells[i] = cell.String()
		}
		rows = append(rows, cells)
	}
	return rows, nil
}
