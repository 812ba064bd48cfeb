package model

import (
	"github.com/angelmondragon/sponsorlens-backend/internal/attribution/types"
)

// UnassignedEpisode keys credit for touchpoints with no episode.
const UnassignedEpisode = "unassigned"

// ChannelBreakdown rolls touchpoint credits up by attribution method.
func ChannelBreakdown(paths []types.Path, result types.Result) map[string]float64 {
	return rollup(paths, result, func(tp types.Touchpoint) string {
		if tp.AttributionMethod == "" {
			return "unknown"
		}
		return tp.AttributionMethod
	})
}

// EpisodeBreakdown rolls touchpoint credits up by episode id.
func EpisodeBreakdown(paths []types.Path, result types.Result) map[string]float64 {
	return rollup(paths, result, func(tp types.Touchpoint) string {
		if tp.EpisodeID == nil {
			return UnassignedEpisode
		}
		return tp.EpisodeID.String()
	})
}

func rollup(paths []types.Path, result types.Result, key func(types.Touchpoint) string) map[string]float64 {
	out := make(map[string]float64)
	seen := make(map[string]struct{})
	for _, p := range paths {
		for _, tp := range p.Touchpoints {
			if _, ok := seen[tp.ID]; ok {
				continue
			}
			seen[tp.ID] = struct{}{}
			credit, ok := result.TouchpointCredits[tp.ID]
			if !ok {
				continue
			}
			out[key(tp)] += credit
		}
	}
	return out
}
