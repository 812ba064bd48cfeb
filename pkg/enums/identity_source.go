package enums

import "fmt"

// IdentitySource records which field resolved the identity of an attribution path.
type IdentitySource string

const (
	IdentitySourceUser    IdentitySource = "user_id"
	IdentitySourceSession IdentitySource = "session_id"
	IdentitySourceDevice  IdentitySource = "device_id"
	IdentitySourceEvent   IdentitySource = "event_id"
)

var validIdentitySources = []IdentitySource{
	IdentitySourceUser,
	IdentitySourceSession,
	IdentitySourceDevice,
	IdentitySourceEvent,
}

// IsValid reports whether the value matches a known identity source.
func (s IdentitySource) IsValid() bool {
	for _, candidate := range validIdentitySources {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseIdentitySource converts the raw string to IdentitySource.
func ParseIdentitySource(value string) (IdentitySource, error) {
	for _, candidate := range validIdentitySources {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid identity source %q", value)
}
