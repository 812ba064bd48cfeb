// Package model holds the pure attribution algorithms. Nothing here performs I/O.
package model

import (
	"errors"
	"fmt"

	"github.com/angelmondragon/sponsorlens-backend/internal/attribution/types"
	"github.com/angelmondragon/sponsorlens-backend/pkg/enums"
	pkgtypes "github.com/angelmondragon/sponsorlens-backend/pkg/types"
)

// DefaultHalfLifeDays is the time-decay half-life used when none is configured.
const DefaultHalfLifeDays = 7.0

// ErrUnknownModel is returned by New for an identifier outside the model enum.
var ErrUnknownModel = errors.New("unknown attribution model")

// Model allocates conversion credit across the touchpoints of a path set.
type Model interface {
	Type() enums.AttributionModelType
	Calculate(paths []types.Path) types.Result
}

// Options tune model construction.
type Options struct {
	HalfLifeDays float64
}

// New returns the model registered for modelType.
func New(modelType enums.AttributionModelType, opts Options) (Model, error) {
	switch modelType {
	case enums.AttributionModelFirstTouch:
		return FirstTouch{}, nil
	case enums.AttributionModelLastTouch:
		return LastTouch{}, nil
	case enums.AttributionModelLinear:
		return Linear{}, nil
	case enums.AttributionModelTimeDecay:
		return NewTimeDecay(opts.HalfLifeDays), nil
	case enums.AttributionModelPositionBased:
		return PositionBased{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownModel, modelType)
	}
}

// allocator returns the fraction of the path value credited to each touchpoint,
// aligned with path.Touchpoints. Fractions may sum to less than one.
type allocator func(path types.Path) []float64

// aggregate runs an allocator over every path and folds the credits into a result.
func aggregate(modelType enums.AttributionModelType, paths []types.Path, allocate allocator) types.Result {
	result := types.Result{
		ModelType:         modelType,
		TouchpointCredits: pkgtypes.TouchpointCredits{},
	}
	if len(paths) == 0 {
		return result
	}

	for _, path := range paths {
		value := path.Value()
		result.TotalConversions++
		result.TotalConversionValue += value

		if len(path.Touchpoints) == 0 {
			continue
		}
		shares := allocate(path)
		for i, tp := range path.Touchpoints {
			if shares[i] == 0 {
				continue
			}
			result.TouchpointCredits[tp.ID] += value * shares[i]
		}
		result.AttributedConversions++
		result.AttributedConversionValue += value
	}

	result.ConfidenceScore = Confidence(paths)
	return result
}
