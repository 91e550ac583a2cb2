// Package settings persists the last used input paths so a later run can reuse them.
package settings

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/rws-cli/internal/rws"
)

// FileName is the settings file kept in the workspace directory.
const FileName = "rws-settings.yaml"

// Settings are written in field order.
type Settings struct {
	Workspace         string `yaml:"workspace"`
	ZoneMap           string `yaml:"zone_map"`
	Countries         string `yaml:"countries"`
	Stations          string `yaml:"stations"`
	StationNameColumn string `yaml:"station_name_column"`
	CropRaster        string `yaml:"crop_raster"`
	ZoneRaster        string `yaml:"zone_raster,omitempty"`
}

// Path returns the settings file location inside dir.
func Path(dir string) string {
	return filepath.Join(dir, FileName)
}

// FromInputs captures the inputs of a resolved run.
func FromInputs(workspace string, in rws.Inputs) Settings {
	return Settings{
		Workspace:         workspace,
		ZoneMap:           in.Zones,
		Countries:         in.Countries,
		Stations:          in.Stations,
		StationNameColumn: in.StationNameColumn,
		CropRaster:        in.CropRaster,
		ZoneRaster:        in.ZoneRaster,
	}
}

// Apply fills the inputs that are still unset from s. Explicit values win.
func (s Settings) Apply(in rws.Inputs) rws.Inputs {
	fill := func(dst *string, v string) {
		if *dst == "" {
			*dst = v
		}
	}
	fill(&in.Zones, s.ZoneMap)
	fill(&in.Countries, s.Countries)
	fill(&in.Stations, s.Stations)
	fill(&in.StationNameColumn, s.StationNameColumn)
	fill(&in.CropRaster, s.CropRaster)
	fill(&in.ZoneRaster, s.ZoneRaster)
	return in
}

// Load reads the settings file. found is false when no file exists.
func Load(path string) (s Settings, found bool, err error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Settings{}, false, nil
	}
	if err != nil {
		return Settings{}, false, eris.Wrapf(err, "settings: read %s", path)
	}
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Settings{}, false, eris.Wrapf(err, "settings: parse %s", path)
	}
	return s, true, nil
}

// Save writes s to path, replacing any previous file.
func Save(path string, s Settings) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return eris.Wrap(err, "settings: marshal")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrapf(err, "settings: create dir for %s", path)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return eris.Wrapf(err, "settings: write %s", tmp)
	}
	return eris.Wrapf(os.Rename(tmp, path), "settings: replace %s", path)
}

// Clear removes the settings file. A missing file is not an error.
func Clear(path string) error {
	err := os.Remove(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return eris.Wrapf(err, "settings: remove %s", path)
}
