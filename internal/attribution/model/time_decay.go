package model

import (
	"math"
	"time"

	"github.com/angelmondragon/sponsorlens-backend/internal/attribution/types"
	"github.com/angelmondragon/sponsorlens-backend/pkg/enums"
)

const day = 24 * time.Hour

// TimeDecay weights touchpoints by e^(-λ·Δdays) relative to the conversion,
// with λ = ln2 / half-life, then normalizes the weights per path.
type TimeDecay struct {
	halfLifeDays float64
	lambda       float64
}

// NewTimeDecay builds the model. A non-positive half-life falls back to DefaultHalfLifeDays.
func NewTimeDecay(halfLifeDays float64) TimeDecay {
	if halfLifeDays <= 0 || math.IsNaN(halfLifeDays) || math.IsInf(halfLifeDays, 0) {
		halfLifeDays = DefaultHalfLifeDays
	}
	return TimeDecay{
		halfLifeDays: halfLifeDays,
		lambda:       math.Ln2 / halfLifeDays,
	}
}

func (TimeDecay) Type() enums.AttributionModelType { return enums.AttributionModelTimeDecay }

// HalfLifeDays reports the configured half-life.
func (m TimeDecay) HalfLifeDays() float64 { return m.halfLifeDays }

// Weight returns the unnormalized decay weight of a touchpoint at ts for a
// conversion at conversionAt. Touchpoints after the conversion weigh 1.
func (m TimeDecay) Weight(ts, conversionAt time.Time) float64 {
	deltaDays := float64(conversionAt.Sub(ts)) / float64(day)
	if deltaDays < 0 {
		deltaDays = 0
	}
	return math.Exp(-m.lambda * deltaDays)
}

func (m TimeDecay) Calculate(paths []types.Path) types.Result {
	if m.lambda == 0 {
		m = NewTimeDecay(m.halfLifeDays)
	}
	return aggregate(m.Type(), paths, func(p types.Path) []float64 {
		anchor := p.Touchpoints[len(p.Touchpoints)-1].Timestamp
		if p.ConversionAt != nil {
			anchor = *p.ConversionAt
		}
		shares := make([]float64, len(p.Touchpoints))
		var sum float64
		for i, tp := range p.Touchpoints {
			shares[i] = m.Weight(tp.Timestamp, anchor)
			sum += shares[i]
		}
		for i := range shares {
			shares[i] /= sum
		}
		return shares
	})
}
