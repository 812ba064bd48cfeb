package middleware

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/sponsorlens-backend/api/responses"
	pkgAuth "github.com/angelmondragon/sponsorlens-backend/pkg/auth"
	"github.com/angelmondragon/sponsorlens-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/sponsorlens-backend/pkg/errors"
	"github.com/angelmondragon/sponsorlens-backend/pkg/logger"
)

// Auth validates a bearer token and seeds the request context with tenant, user and role.
func Auth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r.Header.Get("Authorization"))
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			claims, err := pkgAuth.ParseAccessToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}

			ctx := WithTenantID(r.Context(), claims.TenantID.String())
			ctx = WithUserID(ctx, claims.UserID.String())
			ctx = WithRole(ctx, string(claims.Role))
			if logg != nil {
				ctx = logg.WithTenantID(ctx, claims.TenantID.String())
				ctx = logg.WithFields(ctx, map[string]any{
					"user_id":    claims.UserID.String(),
					"actor_role": string(claims.Role),
				})
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(header string) string {
	raw := strings.TrimSpace(header)
	if len(raw) >= 7 && strings.EqualFold(raw[:7], "bearer ") {
		raw = strings.TrimSpace(raw[7:])
	}
	return raw
}
