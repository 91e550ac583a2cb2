package rws

import (
	"context"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/rws-cli/internal/engine"
)

// Scope is the single-country station set a run works on.
type Scope struct {
	Country   string
	Stations  string   // layer holding only the stations in Country
	Countries []string // every country the original station set touched
}

// ResolveScope reduces the station layer to one country. A station set in a
// single country needs no choice; a set spanning several needs country to name
// one of them, otherwise the run is rejected.
func ResolveScope(ctx context.Context, eng engine.Engine, stations, countries, country string, layers *Layers) (*Scope, error) {
	log := zap.L().With(zap.String("component", "rws.scope"))

	found, err := eng.Countries(ctx, stations, countries)
	if err != nil {
		return nil, stageErr(StageScope, err)
	}
	log.Info("stations span countries", zap.Strings("countries", found))

	switch {
	case len(found) == 0:
		return nil, &InputValidationError{
			Stage:  StageScope,
			Field:  "stations",
			Reason: "no station lies inside any country polygon",
		}
	case country == "" && len(found) > 1:
		return nil, &AmbiguousScopeError{Stage: StageScope, Countries: found}
	case country == "":
		country = found[0]
	}

	if !slices.Contains(found, country) {
		return nil, &InputValidationError{
			Stage:  StageScope,
			Field:  "country",
			Reason: "no station lies in " + country + " (stations are in " + strings.Join(found, ", ") + ")",
		}
	}
	layers.SetCountry(country)

	scope := &Scope{Country: country, Stations: stations, Countries: found}
	if len(found) == 1 {
		return scope, nil
	}

	mask := layers.Temp("scope_country")
	if _, err := eng.SelectByName(ctx, countries, country, mask); err != nil {
		return nil, stageErr(StageScope, err)
	}
	scope.Stations = layers.Temp("stations")
	n, err := eng.Clip(ctx, stations, mask, scope.Stations)
	if err != nil {
		return nil, stageErr(StageScope, err)
	}
	log.Info("stations reduced to country", zap.String("country", country), zap.Int("stations", n))
	return scope, nil
}
