package model

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/angelmondragon/sponsorlens-backend/internal/attribution/types"
	"github.com/angelmondragon/sponsorlens-backend/pkg/enums"
)

func TestChannelAndEpisodeBreakdown(t *testing.T) {
	episode := uuid.MustParse("33333333-3333-3333-3333-333333333333")
	p := makePath("p", 90, enums.IdentitySourceUser, 0, 1, 2)
	p.Touchpoints[0].AttributionMethod = "utm"
	p.Touchpoints[0].EpisodeID = &episode
	p.Touchpoints[1].AttributionMethod = "promo_code"
	p.Touchpoints[1].EpisodeID = &episode
	p.Touchpoints[2].AttributionMethod = ""

	paths := []types.Path{p}
	res := Linear{}.Calculate(paths)

	channels := ChannelBreakdown(paths, res)
	assert.InDelta(t, 30, channels["utm"], Tolerance)
	assert.InDelta(t, 30, channels["promo_code"], Tolerance)
	assert.InDelta(t, 30, channels["unknown"], Tolerance)

	episodes := EpisodeBreakdown(paths, res)
	assert.InDelta(t, 60, episodes[episode.String()], Tolerance)
	assert.InDelta(t, 30, episodes[UnassignedEpisode], Tolerance)
}

func TestBreakdownSkipsUncreditedTouchpoints(t *testing.T) {
	paths := []types.Path{makePath("p", 10, enums.IdentitySourceUser, 0, 1, 2)}
	res := FirstTouch{}.Calculate(paths)
	channels := ChannelBreakdown(paths, res)
	assert.Len(t, channels, 1)
	assert.InDelta(t, 10, channels["utm"], Tolerance)
}
