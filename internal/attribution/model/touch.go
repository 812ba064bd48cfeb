package model

import (
	"github.com/angelmondragon/sponsorlens-backend/internal/attribution/types"
	"github.com/angelmondragon/sponsorlens-backend/pkg/enums"
)

// FirstTouch credits the whole conversion to the first touchpoint.
type FirstTouch struct{}

func (FirstTouch) Type() enums.AttributionModelType { return enums.AttributionModelFirstTouch }

func (m FirstTouch) Calculate(paths []types.Path) types.Result {
	return aggregate(m.Type(), paths, func(p types.Path) []float64 {
		shares := make([]float64, len(p.Touchpoints))
		shares[0] = 1
		return shares
	})
}

// LastTouch credits the whole conversion to the last touchpoint.
type LastTouch struct{}

func (LastTouch) Type() enums.AttributionModelType { return enums.AttributionModelLastTouch }

func (m LastTouch) Calculate(paths []types.Path) types.Result {
	return aggregate(m.Type(), paths, func(p types.Path) []float64 {
		shares := make([]float64, len(p.Touchpoints))
		shares[len(shares)-1] = 1
		return shares
	})
}

// Linear splits the conversion evenly across every touchpoint.
type Linear struct{}

func (Linear) Type() enums.AttributionModelType { return enums.AttributionModelLinear }

func (m Linear) Calculate(paths []types.Path) types.Result {
	return aggregate(m.Type(), paths, func(p types.Path) []float64 {
		shares := make([]float64, len(p.Touchpoints))
		each := 1 / float64(len(shares))
		for i := range shares {
			shares[i] = each
		}
		return shares
	})
}
