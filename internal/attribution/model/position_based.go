package model

import (
	"github.com/angelmondragon/sponsorlens-backend/internal/attribution/types"
	"github.com/angelmondragon/sponsorlens-backend/pkg/enums"
)

const (
	positionEndShare      = 0.4
	positionInteriorShare = 0.2
)

// PositionBased gives 40% to the first and last touchpoints and splits the
// remaining 20% across the interior. A single touchpoint takes 100%.
// With exactly two touchpoints the interior share has nowhere to go and is
// left unallocated; Validate reports the shortfall.
type PositionBased struct{}

func (PositionBased) Type() enums.AttributionModelType { return enums.AttributionModelPositionBased }

func (m PositionBased) Calculate(paths []types.Path) types.Result {
	return aggregate(m.Type(), paths, positionShares)
}

func positionShares(p types.Path) []float64 {
	n := len(p.Touchpoints)
	shares := make([]float64, n)
	switch n {
	case 1:
		shares[0] = 1
	case 2:
		shares[0] = positionEndShare
		shares[1] = positionEndShare
	default:
		shares[0] = positionEndShare
		shares[n-1] = positionEndShare
		interior := positionInteriorShare / float64(n-2)
		for i := 1; i < n-1; i++ {
			shares[i] = interior
		}
	}
	return shares
}
