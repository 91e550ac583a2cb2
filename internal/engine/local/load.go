package local

import (
	"context"
	"strings"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/encoding/shp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/rws-cli/internal/engine"
	"github.com/sells-group/rws-cli/internal/raster"
	"github.com/sells-group/rws-cli/internal/shapefile"
)

// ImportFeatures decodes a shapefile into a feature layer. Points and polygons
// are kept; other shapes and rows with an unparseable zone are skipped.
func (e *Engine) ImportFeatures(ctx context.Context, path string, spec engine.FeatureSpec, out string) (int, error) {
	d, err := shp.NewDecoder(path)
	if err != nil {
		return 0, eris.Wrapf(err, "local: open shapefile %s", path)
	}
	defer d.Close()

	var fields []string
	if spec.NameField != "" {
		fields = append(fields, spec.NameField)
	}
	if spec.ZoneField != "" {
		fields = append(fields, spec.ZoneField)
	}

	var (
		features []*feature
		skipped  int
	)
	for {
		if err := ctx.Err(); err != nil {
			return 0, eris.Wrap(err, "local: import features")
		}
		g, attrs, more := d.DecodeRowFields(fields...)
		if !more {
			break
		}
		f := fromGeom(g)
		if f == nil {
			skipped++
			continue
		}
		if spec.NameField != "" {
			f.name = clean(attrs[spec.NameField])
		}
		if spec.ZoneField != "" {
			zone, err := shapefile.ParseZone(clean(attrs[spec.ZoneField]))
			if err != nil {
				skipped++
				continue
			}
			f.zone = zone
		}
		features = append(features, f)
	}
	if err := d.Error(); err != nil {
		return 0, eris.Wrapf(err, "local: decode shapefile %s", path)
	}

	e.putFeatures(out, features)
	e.log.Debug("imported features",
		zap.String("path", path),
		zap.String("layer", out),
		zap.Int("features", len(features)),
		zap.Int("skipped", skipped),
	)
	return len(features), nil
}

// ImportRaster reads an ESRI ASCII grid into a raster layer.
func (e *Engine) ImportRaster(_ context.Context, path, out string) error {
	g, err := raster.Open(path)
	if err != nil {
		return eris.Wrap(err, "local: import raster")
	}
	e.putRaster(out, g)
	e.log.Debug("imported raster",
		zap.String("path", path),
		zap.String("layer", out),
		zap.Int("cols", g.Cols),
		zap.Int("rows", g.Rows),
	)
	return nil
}

func fromGeom(g geom.Geom) *feature {
	switch v := g.(type) {
	case geom.Point:
		return newPoint(v)
	case *geom.Point:
		if v == nil {
			return nil
		}
		return newPoint(*v)
	case geom.Polygonal:
		if empty(v) {
			return nil
		}
		return newPolygon(v)
	default:
		return nil
	}
}

// clean strips the NUL padding and blanks of dBASE character fields.
func clean(s string) string {
	return strings.Trim(s, "\x00 ")
}
