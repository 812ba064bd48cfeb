package types

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/google/uuid"
)

// PathTouchpoint is the serialized form of a touchpoint inside an attribution path snapshot.
type PathTouchpoint struct {
	TouchpointID      string          `json:"touchpoint_id"`
	Timestamp         time.Time       `json:"timestamp"`
	AttributionMethod string          `json:"attribution_method"`
	CampaignID        uuid.UUID       `json:"campaign_id"`
	EpisodeID         *uuid.UUID      `json:"episode_id,omitempty"`
	Metadata          json.RawMessage `json:"metadata,omitempty"`
}

// PathTouchpoints is stored as jsonb on attribution_paths.touchpoints.
type PathTouchpoints []PathTouchpoint

// TouchpointCredits maps touchpoint ids to credited value.
type TouchpointCredits map[string]float64

// Total sums every credit.
func (c TouchpointCredits) Total() float64 {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	// fixed order keeps float sums reproducible
	sort.Strings(keys)
	var total float64
	for _, k := range keys {
		total += c[k]
	}
	return total
}
