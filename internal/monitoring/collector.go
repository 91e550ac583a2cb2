// Package monitoring summarizes run history and exports per-run Prometheus metrics.
package monitoring

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rotisserie/eris"

	"github.com/sells-group/rws-cli/internal/model"
	"github.com/sells-group/rws-cli/internal/store"
)

// Snapshot holds aggregate figures over recent runs.
type Snapshot struct {
	Total    int     `json:"total"`
	Complete int     `json:"complete"`
	Failed   int     `json:"failed"`
	Running  int     `json:"running"`
	FailRate float64 `json:"fail_rate"`

	// Averages over complete runs.
	AvgCoverage float64 `json:"avg_coverage"`
	AvgRWS      float64 `json:"avg_rws"`
	AvgDCZ      float64 `json:"avg_dcz"`
	Warned      int     `json:"warned"`

	Countries []CountryCount `json:"countries"`

	LookbackHours int       `json:"lookback_hours"`
	CollectedAt   time.Time `json:"collected_at"`
}

// CountryCount is the number of runs recorded for one country.
type CountryCount struct {
	Country string `json:"country"`
	Runs    int    `json:"runs"`
}

// RunLister is the part of store.Store the collector reads.
type RunLister interface {
	ListRuns(ctx context.Context, filter store.RunFilter) ([]model.Run, error)
}

// Collector gathers run statistics from the store.
type Collector struct {
	runs  RunLister
	clock clockwork.Clock
}

// NewCollector creates a collector. A nil clock uses the real clock.
func NewCollector(runs RunLister, clock clockwork.Clock) *Collector {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Collector{runs: runs, clock: clock}
}

// Collect summarizes runs created within the lookback window. A non-positive
// lookback covers the whole history.
func (c *Collector) Collect(ctx context.Context, lookbackHours int) (*Snapshot, error) {
	now := c.clock.Now().UTC()
	snap := &Snapshot{LookbackHours: lookbackHours, CollectedAt: now}

	filter := store.RunFilter{Limit: 10000}
	if lookbackHours > 0 {
		filter.CreatedAfter = now.Add(-time.Duration(lookbackHours) * time.Hour)
	}
	runs, err := c.runs.ListRuns(ctx, filter)
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: list runs")
	}

	snap.Total = len(runs)
	byCountry := make(map[string]*CountryCount)
	var coverage float64
	var rws, dcz int
	for _, r := range runs {
		switch r.Status {
		case model.RunStatusComplete:
			snap.Complete++
			coverage += r.Coverage
			if r.Result != nil {
				rws += len(r.Result.Representative)
				dcz += len(r.Result.Dominant)
				if len(r.Result.Warnings) > 0 {
					snap.Warned++
				}
			}
		case model.RunStatusFailed:
			snap.Failed++
		case model.RunStatusRunning:
			snap.Running++
		}

		key := strings.ToLower(r.Country)
		cc, ok := byCountry[key]
		if !ok {
			cc = &CountryCount{Country: r.Country}
			byCountry[key] = cc
		}
		cc.Runs++
	}

	if finished := snap.Complete + snap.Failed; finished > 0 {
		snap.FailRate = float64(snap.Failed) / float64(finished)
	}
	if snap.Complete > 0 {
		n := float64(snap.Complete)
		snap.AvgCoverage = coverage / n
		snap.AvgRWS = float64(rws) / n
		snap.AvgDCZ = float64(dcz) / n
	}

	for _, cc := range byCountry {
		snap.Countries = append(snap.Countries, *cc)
	}
	sort.Slice(snap.Countries, func(i, j int) bool {
		if snap.Countries[i].Runs != snap.Countries[j].Runs {
			return snap.Countries[i].Runs > snap.Countries[j].Runs
		}
		return snap.Countries[i].Country < snap.Countries[j].Country
	})
	return snap, nil
}
