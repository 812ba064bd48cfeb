package middleware

import (
	"net/http"

	"github.com/angelmondragon/sponsorlens-backend/api/responses"
	pkgAuth "github.com/angelmondragon/sponsorlens-backend/pkg/auth"
	pkgerrors "github.com/angelmondragon/sponsorlens-backend/pkg/errors"
	"github.com/angelmondragon/sponsorlens-backend/pkg/logger"
)

// RequireAttributionRunner rejects callers whose role may only read results.
func RequireAttributionRunner(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role := pkgAuth.Role(RoleFromContext(r.Context()))
			if !role.CanRunAttribution() {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "role may not run attribution"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
