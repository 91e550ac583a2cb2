package rws

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"unicode"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/sells-group/rws-cli/internal/engine"
	"github.com/sells-group/rws-cli/internal/model"
)

// GlobalZonePoints is the cached point grid of the official zone raster. It is
// shared across runs and never removed by run cleanup.
const GlobalZonePoints = "zone_points_global"

const (
	maxSlugLen  = 24
	slugHashLen = 6
)

// Slug folds s to a lowercase ASCII identifier: accents are stripped, any other
// run of non-alphanumerics becomes one underscore. Slugs longer than 24
// characters are cut and end in a hash of the full slug, so distinct long names
// stay distinct.
func Slug(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}

	var b strings.Builder
	underscore := false
	for _, r := range strings.ToLower(folded) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			underscore = false
			continue
		}
		if !underscore && b.Len() > 0 {
			b.WriteByte('_')
			underscore = true
		}
	}
	out := strings.TrimRight(b.String(), "_")
	if len(out) > maxSlugLen {
		sum := sha256.Sum256([]byte(out))
		prefix := strings.TrimRight(out[:maxSlugLen-slugHashLen-1], "_")
		out = prefix + "_" + hex.EncodeToString(sum[:])[:slugHashLen]
	}
	if out == "" {
		return "x"
	}
	return out
}

// Layers hands out the workspace layer names of one run and remembers them for
// cleanup. Names have the form <run>_<country>_<suffix>.
type Layers struct {
	run     string
	country string
	created []model.Layer
	seen    map[string]bool
}

// NewLayers starts a registry for run. The country part is filled in once the
// scope is known; until then names are <run>_<suffix>.
func NewLayers(run string) *Layers {
	return &Layers{run: Slug(run), seen: make(map[string]bool)}
}

// SetCountry fixes the country part of later names.
func (l *Layers) SetCountry(country string) {
	l.country = Slug(country)
}

// Temp returns an intermediate layer name.
func (l *Layers) Temp(suffix string) string {
	return l.add(suffix, model.LayerTemp)
}

// Kept returns the name of a layer worth keeping after the run.
func (l *Layers) Kept(suffix string) string {
	return l.add(suffix, model.LayerKept)
}

// All returns every layer handed out, in creation order.
func (l *Layers) All() []model.Layer {
	out := make([]model.Layer, len(l.created))
	copy(out, l.created)
	return out
}

func (l *Layers) add(suffix string, kind model.LayerKind) string {
	parts := []string{l.run}
	if l.country != "" {
		parts = append(parts, l.country)
	}
	parts = append(parts, Slug(suffix))
	name := strings.Join(parts, "_")
	if !l.seen[name] {
		l.seen[name] = true
		l.created = append(l.created, model.Layer{Name: name, Kind: kind})
	}
	return name
}

// CleanupMode selects which run layers to drop.
type CleanupMode string

const (
	CleanupNone CleanupMode = "none"
	CleanupTemp CleanupMode = "temp"
	CleanupAll  CleanupMode = "all"
)

// ParseCleanupMode accepts none, temp or all (empty means none).
func ParseCleanupMode(s string) (CleanupMode, error) {
	switch CleanupMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", CleanupNone:
		return CleanupNone, nil
	case CleanupTemp:
		return CleanupTemp, nil
	case CleanupAll:
		return CleanupAll, nil
	default:
		return "", eris.Errorf("rws: unknown cleanup mode %q (want none, temp or all)", s)
	}
}

// Selected returns the layers mode would drop.
func Selected(layers []model.Layer, mode CleanupMode) []model.Layer {
	var out []model.Layer
	for _, ly := range layers {
		if ly.Name == GlobalZonePoints {
			continue
		}
		switch {
		case mode == CleanupAll:
			out = append(out, ly)
		case mode == CleanupTemp && ly.Kind == model.LayerTemp:
			out = append(out, ly)
		}
	}
	return out
}

// Cleanup drops the layers selected by mode. Every layer is attempted; the
// returned error joins the individual failures.
func Cleanup(ctx context.Context, eng engine.Engine, layers []model.Layer, mode CleanupMode) (int, error) {
	log := zap.L().With(zap.String("component", "rws.cleanup"))

	var (
		dropped int
		errs    []error
	)
	for _, ly := range Selected(layers, mode) {
		if err := eng.Drop(ctx, ly.Name); err != nil {
			log.Warn("drop layer failed", zap.String("layer", ly.Name), zap.Error(err))
			errs = append(errs, err)
			continue
		}
		dropped++
	}
	log.Info("cleanup done", zap.String("mode", string(mode)), zap.Int("dropped", dropped))
	return dropped, errors.Join(errs...)
}
