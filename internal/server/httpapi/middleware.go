package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/akarpov87/idvault/internal/common"
)

type ctxKey string

const identityIDKey ctxKey = "identityID"

// identityIDFromContext returns the identity id stored by RequireAuth,
// or "" outside a protected route.
func identityIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(identityIDKey).(string)
	return id
}

// bearerToken extracts the token from the Authorization header, or ""
// when the header is absent or not a bearer scheme.
func bearerToken(r *http.Request) string {
	header := r.Header.Get(common.AuthorizationHeaderName)
	if header == "" || !strings.HasPrefix(header, common.BearerPrefix) {
		return ""
	}
	return strings.TrimPrefix(header, common.BearerPrefix)
}

// RequireAuth guards protected routes: it extracts the bearer token,
// validates it (signature, expiry, revocation), and injects the resolved
// identity id into the request context before delegating. Every failure
// is the same 401.
func (h *Handler) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			h.writeError(w, r, http.StatusUnauthorized, "unauthorized")
			return
		}

		identityID, err := h.sessionService.Validate(r.Context(), token)
		if err != nil {
			h.writeServiceError(w, r, err)
			return
		}

		ctx := context.WithValue(r.Context(), identityIDKey, identityID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
