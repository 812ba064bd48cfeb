package enums

import "fmt"

// AttributionModelType maps to the attribution_model_type_enum enum in Postgres.
type AttributionModelType string

const (
	AttributionModelFirstTouch    AttributionModelType = "first_touch"
	AttributionModelLastTouch     AttributionModelType = "last_touch"
	AttributionModelLinear        AttributionModelType = "linear"
	AttributionModelTimeDecay     AttributionModelType = "time_decay"
	AttributionModelPositionBased AttributionModelType = "position_based"
)

var validAttributionModelTypes = []AttributionModelType{
	AttributionModelFirstTouch,
	AttributionModelLastTouch,
	AttributionModelLinear,
	AttributionModelTimeDecay,
	AttributionModelPositionBased,
}

// AllAttributionModelTypes returns every supported model in canonical order.
func AllAttributionModelTypes() []AttributionModelType {
	out := make([]AttributionModelType, len(validAttributionModelTypes))
	copy(out, validAttributionModelTypes)
	return out
}

// String implements fmt.Stringer.
func (m AttributionModelType) String() string {
	return string(m)
}

// IsValid reports whether the value is a supported attribution model.
func (m AttributionModelType) IsValid() bool {
	for _, candidate := range validAttributionModelTypes {
		if candidate == m {
			return true
		}
	}
	return false
}

// ParseAttributionModelType converts the raw string to AttributionModelType.
func ParseAttributionModelType(value string) (AttributionModelType, error) {
	for _, candidate := range validAttributionModelTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid attribution model type %q", value)
}
