package paths

import (
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/sponsorlens-backend/internal/attribution/types"
	"github.com/angelmondragon/sponsorlens-backend/pkg/enums"
)

// pathNamespace seeds the UUIDv5 path ids so re-running a calculation over the
// same events reproduces the same ids.
var pathNamespace = uuid.MustParse("6f1c2f0e-5a57-4b38-9d0c-3c1b8f6f2a11")

type identity struct {
	source enums.IdentitySource
	key    string
}

// ResolveIdentity picks the identity of an event: user id, then session id,
// then device id, then the event id itself.
func ResolveIdentity(e types.RawEvent) (enums.IdentitySource, string) {
	if v := trimmed(e.UserID); v != "" {
		return enums.IdentitySourceUser, v
	}
	if v := trimmed(e.SessionID); v != "" {
		return enums.IdentitySourceSession, v
	}
	if v := trimmed(e.DeviceID); v != "" {
		return enums.IdentitySourceDevice, v
	}
	return enums.IdentitySourceEvent, e.ID
}

// Build groups raw events into converted paths. Every event becomes a
// touchpoint, including the conversion event. Paths without a conversion are
// dropped. The output is ordered by conversion time, then identity.
func Build(tenantID, campaignID uuid.UUID, events []types.RawEvent) []types.Path {
	if len(events) == 0 {
		return []types.Path{}
	}

	groups := make(map[identity][]types.RawEvent)
	for _, e := range events {
		source, key := ResolveIdentity(e)
		id := identity{source: source, key: key}
		groups[id] = append(groups[id], e)
	}

	out := make([]types.Path, 0, len(groups))
	for id, group := range groups {
		if path, ok := buildPath(tenantID, campaignID, id, group); ok {
			out = append(out, path)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.ConversionAt.Equal(*b.ConversionAt) {
			return a.ConversionAt.Before(*b.ConversionAt)
		}
		if a.IdentitySource != b.IdentitySource {
			return a.IdentitySource < b.IdentitySource
		}
		return a.IdentityKey < b.IdentityKey
	})
	return out
}

func buildPath(tenantID, campaignID uuid.UUID, id identity, group []types.RawEvent) (types.Path, bool) {
	sorted := make([]types.RawEvent, len(group))
	copy(sorted, group)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].OccurredAt.Equal(sorted[j].OccurredAt) {
			return sorted[i].OccurredAt.Before(sorted[j].OccurredAt)
		}
		return sorted[i].ID < sorted[j].ID
	})

	path := types.Path{
		IdentitySource: id.source,
		IdentityKey:    id.key,
		Touchpoints:    make([]types.Touchpoint, 0, len(sorted)),
	}

	var conversion *types.RawEvent
	for i := range sorted {
		e := sorted[i]
		path.Touchpoints = append(path.Touchpoints, types.Touchpoint{
			ID:                e.ID,
			Timestamp:         e.OccurredAt,
			AttributionMethod: e.AttributionMethod,
			CampaignID:        e.CampaignID,
			EpisodeID:         e.EpisodeID,
			Metadata:          e.Metadata,
		})
		if e.IsConversion() {
			// sorted ascending, so the last conversion seen is the latest
			conversion = &sorted[i]
		}
	}
	if conversion == nil {
		return types.Path{}, false
	}

	at := conversion.OccurredAt
	path.ConversionAt = &at
	path.ConversionType = conversion.ConversionType
	path.ConversionValue = conversion.ConversionValue
	path.ConversionEventID = conversion.ID
	touchpointIDs := make([]string, len(path.Touchpoints))
	for i, tp := range path.Touchpoints {
		touchpointIDs[i] = tp.ID
	}
	path.ID = PathID(tenantID, campaignID, id.source, id.key, conversion.ID, touchpointIDs)
	return path, true
}

// PathID derives the deterministic id of a path from its scope, identity,
// conversion and ordered touchpoint ids. Each component is length-prefixed so
// free-text keys cannot collide across field boundaries.
func PathID(tenantID, campaignID uuid.UUID, source enums.IdentitySource, key, conversionEventID string, touchpointIDs []string) uuid.UUID {
	var b strings.Builder
	writeComponent := func(v string) {
		b.WriteString(strconv.Itoa(len(v)))
		b.WriteByte(':')
		b.WriteString(v)
	}
	writeComponent(tenantID.String())
	writeComponent(campaignID.String())
	writeComponent(string(source))
	writeComponent(key)
	writeComponent(conversionEventID)
	b.WriteString(strconv.Itoa(len(touchpointIDs)))
	b.WriteByte('#')
	for _, id := range touchpointIDs {
		writeComponent(id)
	}
	return uuid.NewSHA1(pathNamespace, []byte(b.String()))
}

func trimmed(v *string) string {
	if v == nil {
		return ""
	}
	return strings.TrimSpace(*v)
}
