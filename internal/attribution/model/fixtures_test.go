package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/sponsorlens-backend/internal/attribution/types"
	"github.com/angelmondragon/sponsorlens-backend/pkg/enums"
)

var day0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func at(days float64) time.Time {
	return day0.Add(time.Duration(days * float64(24*time.Hour)))
}

// makePath builds a converted path whose touchpoints sit at the given day
// offsets; the conversion happens at the last offset.
func makePath(prefix string, value float64, source enums.IdentitySource, days ...float64) types.Path {
	tps := make([]types.Touchpoint, len(days))
	for i, d := range days {
		tps[i] = types.Touchpoint{
			ID:                fmt.Sprintf("%s-%d", prefix, i+1),
			Timestamp:         at(d),
			AttributionMethod: "utm",
		}
	}
	conv := at(days[len(days)-1])
	convType := "purchase"
	return types.Path{
		ID:                uuid.NewSHA1(uuid.NameSpaceOID, []byte(prefix)),
		IdentitySource:    source,
		IdentityKey:       prefix,
		Touchpoints:       tps,
		ConversionValue:   &value,
		ConversionType:    &convType,
		ConversionAt:      &conv,
		ConversionEventID: tps[len(tps)-1].ID,
	}
}

func allModels() []Model {
	out := make([]Model, 0, 5)
	for _, mt := range enums.AllAttributionModelTypes() {
		m, err := New(mt, Options{})
		if err != nil {
			panic(err)
		}
		out = append(out, m)
	}
	return out
}

func mixedPaths() []types.Path {
	return []types.Path{
		makePath("a", 100, enums.IdentitySourceUser, 0, 5, 7),
		makePath("b", 40, enums.IdentitySourceSession, 2),
		makePath("c", 75.5, enums.IdentitySourceDevice, 1, 3),
		makePath("d", 19.99, enums.IdentitySourceUser, 0, 1, 2, 3, 10),
	}
}
