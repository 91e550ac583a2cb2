package report

import (
	"bytes"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/rws-cli/internal/model"
)

func kenyaResult() *model.Result {
	return &model.Result{
		Run:                "Maize 2024",
		Country:            "Kenya",
		Method:             model.MethodPoints,
		OfficialZoneRaster: true,
		StationFile:        "/data/stations.shp",
		CropRasterFile:     "/data/spam_maize.tif",
		Stations:           12,
		Buffers:            9,
		NationalTotal:      2000,
		Zones: []model.ZoneShare{
			{Zone: 3, Percent: 55},
			{Zone: 4, Percent: 41},
			{Zone: 7, Percent: 4},
		},
		Dominant: []model.ZoneShare{{Zone: 3, Percent: 55}, {Zone: 4, Percent: 41}},
		Representative: []model.BufferShare{
			{Station: "Eldoret", Zone: 3, Percent: 12.25},
			{Station: "Kitale", Zone: 4, Percent: 3},
			{Station: "Nakuru, West", Zone: 3, Percent: 0.9},
		},
		Coverage: 16.15,
	}
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "rws_maize_2024.csv", FileName("Maize 2024", ".csv"))
	assert.Equal(t, "rws_x.xlsx", FileName("", ".xlsx"))
	assert.NotEqual(t,
		FileName("kenya maize long rains 2024 zonal", ".csv"),
		FileName("kenya maize long rains 2024 points", ".csv"))
}

func TestFormatPercent(t *testing.T) {
	assert.Equal(t, "12.25", FormatPercent(12.25))
	assert.Equal(t, "3", FormatPercent(3))
	assert.Equal(t, "0.1", FormatPercent(0.1))
}

func TestRecords(t *testing.T) {
	rows := Records(kenyaResult())
	require.Len(t, rows, 7)
	assert.Equal(t, []string{"Eldoret", "12.25"}, rows[0])
	assert.Equal(t, []string{"Kitale", "3"}, rows[1])
	assert.Equal(t, []string{KeyStationFile, "/data/stations.shp"}, rows[3])
	assert.Equal(t, []string{KeyCropRasterFile, "/data/spam_maize.tif"}, rows[4])
	assert.Equal(t, []string{KeyPointsMethod, "true"}, rows[5])
	assert.Equal(t, []string{KeyOfficialZoneRaster, "true"}, rows[6])
}

func TestRecords_NoRepresentative(t *testing.T) {
	res := kenyaResult()
	res.Representative = nil
	res.Method = model.MethodZonal
	rows := Records(res)
	require.Len(t, rows, 4)
	assert.Equal(t, []string{KeyPointsMethod, "false"}, rows[2])
}

func TestWriteCSV_RoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")

	path, err := WriteCSV(dir, kenyaResult())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "rws_maize_2024.csv"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Eldoret,12.25\n")
	assert.Contains(t, string(data), "\"Nakuru, West\",0.9\n")

	shares, meta, err := ReadCSV(path)
	require.NoError(t, err)
	require.Len(t, shares, 3)
	assert.Equal(t, "Nakuru, West", shares[2].Station)
	assert.InDelta(t, 0.9, shares[2].Percent, 1e-12)
	assert.Equal(t, "true", meta[KeyPointsMethod])
	assert.Equal(t, "/data/spam_maize.tif", meta[KeyCropRasterFile])
}

func TestWriteCSV_NilResult(t *testing.T) {
	_, err := WriteCSV(t.TempDir(), nil)
	require.Error(t, err)
}

func TestReadCSV_BadPercent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.csv")
	require.NoError(t, os.WriteFile(path, []byte("Eldoret,abc\n"), 0o644))

	_, _, err := ReadCSV(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Eldoret")
}

func TestWriteXLSX(t *testing.T) {
	dir := t.TempDir()
	res := kenyaResult()
	res.Warnings = []model.Warning{{Kind: model.WarningNoRepresentativeBuffers, Message: "none"}}

	path, err := WriteXLSX(dir, res)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "rws_maize_2024.xlsx"), path)

	rwsRows, err := ReadSheet(path, SheetRWS)
	require.NoError(t, err)
	require.Len(t, rwsRows, 4)
	assert.Equal(t, []string{"rank", "station", "zone", "percent"}, rwsRows[0])
	assert.Equal(t, "Eldoret", rwsRows[1][1])
	pct, err := strconv.ParseFloat(rwsRows[1][3], 64)
	require.NoError(t, err)
	assert.InDelta(t, 12.25, pct, 1e-9)

	zoneRows, err := ReadSheet(path, SheetZones)
	require.NoError(t, err)
	require.Len(t, zoneRows, 4)
	assert.Equal(t, "7", zoneRows[3][0])

	meta, err := ReadSheet(path, SheetMetadata)
	require.NoError(t, err)
	values := make(map[string]string)
	for _, row := range meta[1:] {
		values[row[0]] = row[1]
	}
	assert.Equal(t, "Kenya", values["country"])
	assert.Equal(t, "true", values[KeyOfficialZoneRaster])
	assert.Equal(t, "no_representative_buffers: none", values["warning"])
}

func TestReadSheet_Missing(t *testing.T) {
	path, err := WriteXLSX(t.TempDir(), kenyaResult())
	require.NoError(t, err)

	_, err = ReadSheet(path, "nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestWriteSummary(t *testing.T) {
	var buf bytes.Buffer
	res := kenyaResult()
	res.Warnings = []model.Warning{{Kind: model.WarningNoDominantZones, Message: "x"}}
	WriteSummary(&buf, res)

	out := buf.String()
	assert.Contains(t, out, "Kenya")
	assert.Contains(t, out, "Eldoret")
	assert.Contains(t, out, "16.15")
	assert.Contains(t, out, "warning: no_dominant_zones: x")
}

func TestWriteSummary_NoRepresentative(t *testing.T) {
	var buf bytes.Buffer
	res := kenyaResult()
	res.Representative = nil
	WriteSummary(&buf, res)
	assert.Contains(t, buf.String(), "No representative buffers.")
}
