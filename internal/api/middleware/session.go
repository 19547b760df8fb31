package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/campus-life-events/server/internal/api/respond"
	"github.com/campus-life-events/server/internal/apperr"
	"github.com/campus-life-events/server/internal/auth"
	"github.com/campus-life-events/server/internal/domain/sessions"
)

// SessionCookieName is the cookie that carries the session ID.
const SessionCookieName = "session_id"

type contextKeyPrincipal string

const principalKey contextKeyPrincipal = "principal"

// SessionAuth resolves the session cookie to a principal and stores it in
// the request context. Requests without a valid session are rejected with
// 401 before the handler runs.
func SessionAuth(manager *sessions.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookieName)
			if err != nil || strings.TrimSpace(cookie.Value) == "" {
				respond.Error(w, r, apperr.Unauthorized("missing session"))
				return
			}

			principal, err := manager.Resolve(r.Context(), cookie.Value)
			if err != nil {
				respond.Error(w, r, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(contextWithPrincipal(r.Context(), principal)))
		})
	}
}

func contextWithPrincipal(ctx context.Context, principal auth.Principal) context.Context {
	return context.WithValue(ctx, principalKey, principal)
}

// Principal returns the authenticated identity stored by SessionAuth.
func Principal(r *http.Request) (auth.Principal, bool) {
	principal, ok := r.Context().Value(principalKey).(auth.Principal)
	return principal, ok
}
