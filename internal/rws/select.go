package rws

import (
	"sort"

	"github.com/sells-group/rws-cli/internal/model"
)

// SelectDominant returns the zones whose share is strictly above threshold,
// by share descending then zone id ascending.
func SelectDominant(shares []model.ZoneShare, threshold float64) []model.ZoneShare {
	out := make([]model.ZoneShare, 0, len(shares))
	for _, s := range shares {
		if s.Percent > threshold {
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Percent != out[j].Percent {
			return out[i].Percent > out[j].Percent
		}
		return out[i].Zone < out[j].Zone
	})
	return out
}

// SelectRepresentative sums the rows of each station, drops stations outside
// the dominant zones and keeps those strictly above threshold, by share
// descending then station name ascending. Coverage is the sum of kept shares.
func SelectRepresentative(shares []model.BufferShare, dominant []model.ZoneShare, threshold float64) ([]model.BufferShare, float64) {
	dcz := zoneSet(dominant)

	idx := make(map[string]int)
	var merged []model.BufferShare
	for _, s := range shares {
		if !dcz[s.Zone] {
			continue
		}
		if i, ok := idx[s.Station]; ok {
			merged[i].Percent += s.Percent
			continue
		}
		idx[s.Station] = len(merged)
		merged = append(merged, s)
	}

	var (
		kept     []model.BufferShare
		coverage float64
	)
	for _, s := range merged {
		if s.Percent > threshold {
			kept = append(kept, s)
		}
	}
	sort.SliceStable(kept, func(i, j int) bool {
		if kept[i].Percent != kept[j].Percent {
			return kept[i].Percent > kept[j].Percent
		}
		return kept[i].Station < kept[j].Station
	})
	for _, s := range kept {
		coverage += s.Percent
	}
	return kept, coverage
}
