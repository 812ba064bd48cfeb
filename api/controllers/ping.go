package controllers

import (
	"net/http"

	"github.com/angelmondragon/sponsorlens-backend/api/middleware"
	"github.com/angelmondragon/sponsorlens-backend/api/responses"
)

func PublicPing() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, map[string]string{"scope": "public", "status": "ok"})
	}
}

// PrivatePing echoes the caller identity resolved from the bearer token.
func PrivatePing() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, map[string]string{
			"scope":     "private",
			"status":    "ok",
			"tenant_id": middleware.TenantIDFromContext(r.Context()),
			"user_id":   middleware.UserIDFromContext(r.Context()),
			"role":      middleware.RoleFromContext(r.Context()),
		})
	}
}
