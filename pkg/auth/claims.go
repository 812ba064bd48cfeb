package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Role scopes what a tenant member may do through the API.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleAnalyst Role = "analyst"
	RoleViewer  Role = "viewer"
)

// IsValid reports whether the role is known.
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleAnalyst, RoleViewer:
		return true
	default:
		return false
	}
}

// CanRunAttribution reports whether the role may trigger new calculations.
func (r Role) CanRunAttribution() bool {
	return r == RoleAdmin || r == RoleAnalyst
}

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	TenantID uuid.UUID
	UserID   uuid.UUID
	Role     Role
	JTI      string
}

// AccessTokenClaims represents the typed JWT issued to clients.
type AccessTokenClaims struct {
	TenantID uuid.UUID `json:"tenant_id"`
	UserID   uuid.UUID `json:"user_id"`
	Role     Role      `json:"role"`
	jwt.RegisteredClaims
}
