package rws

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/rws-cli/internal/engine"
	"github.com/sells-group/rws-cli/internal/model"
)

// Observer receives stage timings and the final outcome of a run.
type Observer interface {
	StageDone(stage Stage, d time.Duration, err error)
	RunDone(res *model.Result, err error)
}

type nopObserver struct{}

func (nopObserver) StageDone(Stage, time.Duration, error) {}
func (nopObserver) RunDone(*model.Result, error)          {}

// Pipeline runs the RWS selection stages in order against one engine.
type Pipeline struct {
	eng      engine.Engine
	clock    clockwork.Clock
	observer Observer
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithClock sets the clock used for run timestamps and stage timings.
func WithClock(c clockwork.Clock) Option {
	return func(p *Pipeline) { p.clock = c }
}

// WithObserver registers an observer for stage timings.
func WithObserver(o Observer) Option {
	return func(p *Pipeline) { p.observer = o }
}

// NewPipeline creates a Pipeline.
func NewPipeline(eng engine.Engine, opts ...Option) *Pipeline {
	p := &Pipeline{eng: eng, clock: clockwork.NewRealClock(), observer: nopObserver{}}
	for _, o := range opts {
		o(p)
	}
	return p
}

// run carries the state one execution of the stages builds up.
type run struct {
	cfg    RunConfig
	layers *Layers
	res    *model.Result

	stationsSrc  string
	countriesSrc string
	scope        *Scope
	country      string
	zones        string
	stations     []model.Station
	bufferLayers BufferLayers
	buffers      []model.Buffer
	strategy     Strategy
	shares       []model.BufferShare
}

// Run executes every stage for cfg. Layers created along the way are recorded
// in layers, also when the run fails, so the caller can clean them up.
// Fatal conditions come back as *InputValidationError, *AmbiguousScopeError,
// *ZeroDenominatorError or *StageError. Empty selections are not errors; they
// are reported as warnings on the result.
func (p *Pipeline) Run(ctx context.Context, cfg RunConfig, layers *Layers) (*model.Result, error) {
	cfg = cfg.WithDefaults()
	res := &model.Result{
		Run:                cfg.Run,
		Method:             cfg.Method,
		OfficialZoneRaster: cfg.officialZoneRaster(),
		StationFile:        cfg.Inputs.Stations,
		CropRasterFile:     cfg.Inputs.CropRaster,
		StartedAt:          p.clock.Now(),
	}
	if err := cfg.Validate(); err != nil {
		p.observer.RunDone(nil, err)
		return nil, err
	}

	r := &run{cfg: cfg, layers: layers, res: res}
	log := zap.L().With(
		zap.String("component", "rws.pipeline"),
		zap.String("run", cfg.Run),
		zap.String("method", string(cfg.Method)),
	)

	stages := []struct {
		stage Stage
		fn    func(context.Context, *run) error
	}{
		{StageScope, p.scope},
		{StageCountry, p.country},
		{StageZones, p.zones},
		{StageAttribute, p.attribute},
		{StageBuffer, p.buffer},
		{StageZoneShares, p.zoneShares},
		{StageDominant, p.dominant},
		{StageBufferShares, p.bufferShares},
		{StageRepresentative, p.representative},
	}
	for _, s := range stages {
		if err := p.stage(ctx, log, s.stage, r, s.fn); err != nil {
			p.observer.RunDone(nil, err)
			return nil, err
		}
		if s.stage == StageDominant && len(res.Dominant) == 0 {
			break
		}
	}

	if len(res.Representative) == 0 {
		res.Warnings = append(res.Warnings, model.Warning{
			Kind: model.WarningNoRepresentativeBuffers,
			Message: fmt.Sprintf("no buffer holds more than %v%% of national crop area inside a dominant zone",
				cfg.Thresholds.RWS),
		})
	}
	res.FinishedAt = p.clock.Now()

	log.Info("run complete",
		zap.String("country", res.Country),
		zap.Int("zones", len(res.Zones)),
		zap.Int("dominant", len(res.Dominant)),
		zap.Int("representative", len(res.Representative)),
		zap.Float64("coverage", res.Coverage),
		zap.Duration("elapsed", res.FinishedAt.Sub(res.StartedAt)),
	)
	p.observer.RunDone(res, nil)
	return res, nil
}

func (p *Pipeline) stage(ctx context.Context, log *zap.Logger, s Stage, r *run, fn func(context.Context, *run) error) error {
	start := p.clock.Now()
	err := ctx.Err()
	if err == nil {
		err = fn(ctx, r)
	}
	if err != nil {
		if _, tagged := FailedStage(err); !tagged {
			err = &StageError{Stage: s, Err: err}
		}
	}
	d := p.clock.Since(start)
	p.observer.StageDone(s, d, err)
	if err != nil {
		log.Error("stage failed", zap.String("stage", string(s)), zap.Duration("elapsed", d), zap.Error(err))
		return err
	}
	log.Debug("stage done", zap.String("stage", string(s)), zap.Duration("elapsed", d))
	return nil
}

func (p *Pipeline) scope(ctx context.Context, r *run) error {
	in := r.cfg.Inputs
	r.stationsSrc = r.layers.Temp("stations_src")
	n, err := p.eng.ImportFeatures(ctx, in.Stations, engine.FeatureSpec{NameField: in.StationNameColumn}, r.stationsSrc)
	if err != nil {
		return eris.Wrap(err, "rws: import stations")
	}
	if n == 0 {
		return &InputValidationError{Stage: StageScope, Field: "stations", Reason: "no point features in " + in.Stations}
	}

	r.countriesSrc = r.layers.Temp("countries_src")
	if _, err := p.eng.ImportFeatures(ctx, in.Countries, engine.FeatureSpec{NameField: in.CountryField}, r.countriesSrc); err != nil {
		return eris.Wrap(err, "rws: import countries")
	}

	r.scope, err = ResolveScope(ctx, p.eng, r.stationsSrc, r.countriesSrc, r.cfg.Country, r.layers)
	if err != nil {
		return err
	}
	r.res.Country = r.scope.Country
	return nil
}

// country cuts the selected country out of the boundary set and re-checks that
// the station layer lies in that country alone.
func (p *Pipeline) country(ctx context.Context, r *run) error {
	found, err := p.eng.Countries(ctx, r.scope.Stations, r.countriesSrc)
	if err != nil {
		return err
	}
	if len(found) > 1 {
		return &AmbiguousScopeError{Stage: StageCountry, Countries: found}
	}

	r.country = r.layers.Kept("country")
	n, err := p.eng.SelectByName(ctx, r.countriesSrc, r.scope.Country, r.country)
	if err != nil {
		return err
	}
	if n == 0 {
		return &InputValidationError{Stage: StageCountry, Field: "country", Reason: r.scope.Country + " not found in " + r.cfg.Inputs.Countries}
	}
	return nil
}

func (p *Pipeline) zones(ctx context.Context, r *run) error {
	src := r.layers.Temp("zones_src")
	if _, err := p.eng.ImportFeatures(ctx, r.cfg.Inputs.Zones, engine.FeatureSpec{ZoneField: r.cfg.Inputs.ZoneField}, src); err != nil {
		return eris.Wrap(err, "rws: import zones")
	}
	r.zones = r.layers.Kept("zones")
	n, err := p.eng.Clip(ctx, src, r.country, r.zones)
	if err != nil {
		return err
	}
	if n == 0 {
		return &InputValidationError{Stage: StageZones, Field: "zones", Reason: "no zone polygon intersects " + r.scope.Country}
	}
	return nil
}

func (p *Pipeline) attribute(ctx context.Context, r *run) error {
	stations, err := Attribute(ctx, p.eng, r.scope.Stations, r.zones)
	if err != nil {
		return err
	}
	r.stations = stations
	r.res.Stations = len(stations)
	return nil
}

func (p *Pipeline) buffer(ctx context.Context, r *run) error {
	r.bufferLayers = BufferLayers{
		Disks:     r.layers.Temp("disks"),
		Fragments: r.layers.Temp("fragments"),
		Buffers:   r.layers.Kept("buffers"),
	}
	buffers, err := BuildBuffers(ctx, p.eng, r.scope.Stations, r.stations, r.zones, r.cfg.BufferRadiusKM, r.bufferLayers)
	if err != nil {
		return err
	}
	r.buffers = buffers
	r.res.Buffers = len(buffers)
	return nil
}

func (p *Pipeline) zoneShares(ctx context.Context, r *run) error {
	crop := r.layers.Temp("crop")
	if err := p.eng.ImportRaster(ctx, r.cfg.Inputs.CropRaster, crop); err != nil {
		return eris.Wrap(err, "rws: import crop raster")
	}
	r.strategy = NewStrategy(p.eng, r.cfg, StrategyLayers{
		Zones:   r.zones,
		Country: r.country,
		Crop:    crop,
		Buffers: r.bufferLayers.Buffers,
	}, r.layers)

	zs, err := r.strategy.ZoneShares(ctx)
	if err != nil {
		return err
	}
	r.res.NationalTotal = zs.Total
	r.res.Zones = zs.Shares
	return nil
}

func (p *Pipeline) dominant(_ context.Context, r *run) error {
	r.res.Dominant = SelectDominant(r.res.Zones, r.cfg.Thresholds.DCZ)
	if len(r.res.Dominant) == 0 {
		r.res.Warnings = append(r.res.Warnings, model.Warning{
			Kind:    model.WarningNoDominantZones,
			Message: fmt.Sprintf("no zone holds more than %v%% of national crop area", r.cfg.Thresholds.DCZ),
		})
	}
	return nil
}

func (p *Pipeline) bufferShares(ctx context.Context, r *run) error {
	shares, err := r.strategy.BufferShares(ctx, r.buffers, r.res.Dominant)
	if err != nil {
		return err
	}
	r.shares = shares
	return nil
}

func (p *Pipeline) representative(_ context.Context, r *run) error {
	r.res.Representative, r.res.Coverage = SelectRepresentative(r.shares, r.res.Dominant, r.cfg.Thresholds.RWS)
	return nil
}
