package model

import (
	"math"

	"github.com/google/uuid"

	"github.com/angelmondragon/sponsorlens-backend/internal/attribution/types"
	"github.com/angelmondragon/sponsorlens-backend/pkg/enums"
)

// Tolerance bounds the float error accepted when comparing credit sums.
const Tolerance = 1e-6

// PathAllocation compares what one path should have distributed with what it did.
type PathAllocation struct {
	PathID          uuid.UUID `json:"path_id"`
	TouchpointCount int       `json:"touchpoint_count"`
	Expected        float64   `json:"expected"`
	Allocated       float64   `json:"allocated"`
	Shortfall       float64   `json:"shortfall"`
	Skipped         bool      `json:"skipped"`
}

// Conserved reports whether the path distributed its full value.
func (a PathAllocation) Conserved() bool {
	return a.Skipped || math.Abs(a.Shortfall) <= Tolerance
}

// ConservationReport summarizes credit conservation for one result.
type ConservationReport struct {
	ModelType   enums.AttributionModelType `json:"model_type"`
	Paths       []PathAllocation           `json:"paths"`
	Expected    float64                    `json:"expected"`
	Allocated   float64                    `json:"allocated"`
	Unallocated float64                    `json:"unallocated"`
}

// Conserved reports whether every path distributed its full value.
func (r ConservationReport) Conserved() bool {
	for _, p := range r.Paths {
		if !p.Conserved() {
			return false
		}
	}
	return true
}

// Violations returns the paths that did not distribute their full value.
func (r ConservationReport) Violations() []PathAllocation {
	var out []PathAllocation
	for _, p := range r.Paths {
		if !p.Conserved() {
			out = append(out, p)
		}
	}
	return out
}

// Validate checks result credits against the value of each path. Paths with no
// touchpoints are reported as skipped and do not count toward the shortfall.
func Validate(paths []types.Path, result types.Result) ConservationReport {
	report := ConservationReport{
		ModelType: result.ModelType,
		Paths:     make([]PathAllocation, 0, len(paths)),
	}
	for _, p := range paths {
		alloc := PathAllocation{
			PathID:          p.ID,
			TouchpointCount: len(p.Touchpoints),
			Expected:        p.Value(),
		}
		if len(p.Touchpoints) == 0 {
			alloc.Skipped = true
			report.Paths = append(report.Paths, alloc)
			continue
		}

		seen := make(map[string]struct{}, len(p.Touchpoints))
		for _, tp := range p.Touchpoints {
			if _, ok := seen[tp.ID]; ok {
				continue
			}
			seen[tp.ID] = struct{}{}
			alloc.Allocated += result.TouchpointCredits[tp.ID]
		}
		alloc.Shortfall = alloc.Expected - alloc.Allocated

		report.Expected += alloc.Expected
		report.Allocated += alloc.Allocated
		if !alloc.Conserved() {
			report.Unallocated += alloc.Shortfall
		}
		report.Paths = append(report.Paths, alloc)
	}
	return report
}
