package model

import (
	"math"

	"github.com/angelmondragon/sponsorlens-backend/internal/attribution/types"
	"github.com/angelmondragon/sponsorlens-backend/pkg/enums"
)

const (
	confidenceBase            = 0.5
	confidenceMultiTouchShare = 0.3
	confidenceUserIDShare     = 0.2
)

// Confidence scores how much a path set can be trusted, in [0, 1].
// Richer paths and paths resolved by user id score higher.
func Confidence(paths []types.Path) float64 {
	if len(paths) == 0 {
		return 0
	}
	var multiTouch, byUser int
	for _, p := range paths {
		if len(p.Touchpoints) > 1 {
			multiTouch++
		}
		if p.IdentitySource == enums.IdentitySourceUser {
			byUser++
		}
	}
	total := float64(len(paths))
	return ConfidenceFromRatios(float64(multiTouch)/total, float64(byUser)/total)
}

// ConfidenceFromRatios applies the scoring formula to precomputed ratios.
func ConfidenceFromRatios(multiTouchRatio, userIDRatio float64) float64 {
	score := confidenceBase + confidenceMultiTouchShare*multiTouchRatio + confidenceUserIDShare*userIDRatio
	return math.Max(0, math.Min(1, score))
}
