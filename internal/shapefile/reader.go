// Package shapefile reads ESRI shapefiles into attribute/geometry records for
// import into the PostGIS workspace.
package shapefile

import (
	"math"
	"strconv"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Spec names the source attributes mapped onto a record's name and zone.
// Empty fields are not read.
type Spec struct {
	NameField string
	ZoneField string
	SRID      int
}

// Record is one shapefile row reduced to the attributes the pipeline uses.
type Record struct {
	Name string
	Zone int
	WKB  []byte
}

// Fields returns the attribute column names of the shapefile at path.
func Fields(path string) ([]string, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "shapefile: open %s", path)
	}
	defer func() { _ = reader.Close() }()

	fields := reader.Fields()
	names := make([]string, 0, len(fields))
	for _, f := range fields {
		names = append(names, strings.TrimRight(f.String(), "\x00"))
	}
	return names, nil
}

// HasField reports whether the shapefile has the named column (case-insensitive,
// matching DBF conventions).
func HasField(path, name string) (bool, error) {
	names, err := Fields(path)
	if err != nil {
		return false, err
	}
	for _, n := range names {
		if strings.EqualFold(n, name) {
			return true, nil
		}
	}
	return false, nil
}

// Read returns every record whose geometry could be encoded. Rows with empty or
// unsupported shapes are skipped and counted in the debug log.
func Read(path string, spec Spec) ([]Record, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "shapefile: open %s", path)
	}
	defer func() { _ = reader.Close() }()

	fieldIdx := make(map[string]int)
	for i, f := range reader.Fields() {
		fieldIdx[strings.ToLower(strings.TrimRight(f.String(), "\x00"))] = i
	}

	nameIdx, err := lookup(fieldIdx, spec.NameField)
	if err != nil {
		return nil, eris.Wrapf(err, "shapefile: %s", path)
	}
	zoneIdx, err := lookup(fieldIdx, spec.ZoneField)
	if err != nil {
		return nil, eris.Wrapf(err, "shapefile: %s", path)
	}

	srid := spec.SRID
	if srid == 0 {
		srid = 4326
	}

	var records []Record
	var skipped int
	for reader.Next() {
		_, shape := reader.Shape()

		wkb, encErr := EncodeWKB(shape, srid)
		if encErr != nil || wkb == nil {
			skipped++
			continue
		}

		rec := Record{WKB: wkb}
		if nameIdx >= 0 {
			rec.Name = attr(reader, nameIdx)
		}
		if zoneIdx >= 0 {
			zone, err := ParseZone(attr(reader, zoneIdx))
			if err != nil {
				skipped++
				continue
			}
			rec.Zone = zone
		}
		records = append(records, rec)
	}

	if skipped > 0 {
		zap.L().Debug("shapefile: skipped records",
			zap.String("path", path),
			zap.Int("skipped", skipped),
		)
	}

	return records, nil
}

// ParseZone converts a grid-code attribute ("5003", "5003.000") to an int.
func ParseZone(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, eris.New("shapefile: empty zone value")
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, eris.Wrapf(err, "shapefile: zone value %q", s)
	}
	if f != math.Trunc(f) {
		return 0, eris.Errorf("shapefile: zone value %q is not an integer", s)
	}
	return int(f), nil
}

func lookup(fieldIdx map[string]int, name string) (int, error) {
	if name == "" {
		return -1, nil
	}
	idx, ok := fieldIdx[strings.ToLower(name)]
	if !ok {
		return -1, eris.Errorf("missing attribute column %s", name)
	}
	return idx, nil
}

func attr(reader *shp.Reader, idx int) string {
	return strings.TrimSpace(strings.TrimRight(reader.Attribute(idx), "\x00"))
}
