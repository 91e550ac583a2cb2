// Package inputs checks that the datasets named by a run exist and carry the
// columns the pipeline reads, before any workspace layer is created.
package inputs

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/sells-group/rws-cli/internal/model"
	"github.com/sells-group/rws-cli/internal/rws"
	"github.com/sells-group/rws-cli/internal/shapefile"
)

// Check validates cfg against the filesystem. Failures are *rws.InputValidationError.
func Check(cfg rws.RunConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	in := cfg.Inputs
	for _, c := range []struct {
		field, path, column, columnField string
	}{
		{"stations", in.Stations, in.StationNameColumn, "station_name_column"},
		{"countries", in.Countries, in.CountryField, "country_field"},
		{"zones", in.Zones, in.ZoneField, "zone_field"},
	} {
		if err := checkShapefile(c.field, c.path, c.column, c.columnField); err != nil {
			return err
		}
	}

	if err := checkFile("crop_raster", in.CropRaster); err != nil {
		return err
	}
	if cfg.UseZoneRaster && cfg.Method == model.MethodPoints {
		if err := checkFile("zone_raster", in.ZoneRaster); err != nil {
			return err
		}
	}
	return nil
}

func checkShapefile(field, path, column, columnField string) error {
	if err := checkFile(field, path); err != nil {
		return err
	}
	if !strings.EqualFold(filepath.Ext(path), ".shp") {
		return invalid(field, path+" is not a .shp file")
	}
	ok, err := shapefile.HasField(path, column)
	if err != nil {
		return invalid(field, "unreadable shapefile "+path+": "+err.Error())
	}
	if !ok {
		return invalid(columnField, "column "+column+" not found in "+path)
	}
	return nil
}

func checkFile(field, path string) error {
	info, err := os.Stat(path)
	switch {
	case os.IsNotExist(err):
		return invalid(field, path+" does not exist")
	case err != nil:
		return invalid(field, err.Error())
	case info.IsDir():
		return invalid(field, path+" is a directory")
	}
	return nil
}

func invalid(field, reason string) error {
	return &rws.InputValidationError{Stage: rws.StageInputs, Field: field, Reason: reason}
}
