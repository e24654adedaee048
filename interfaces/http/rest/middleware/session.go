package middleware

import (
	"context"
	"net/http"

	"ixp-grapher/application/ports"
	"ixp-grapher/infrastructure/session"
)

type sessionKey struct{}

// Session binds the caller's sticky filter store to the request, issuing a
// new session cookie when the caller has none.
func Session(manager *session.Manager, cookieName string, secure bool) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := ""
			if cookie, err := r.Cookie(cookieName); err == nil && manager.Valid(cookie.Value) {
				id = cookie.Value
			}
			if id == "" {
				id = manager.NewID()
				http.SetCookie(w, &http.Cookie{
					Name:     cookieName,
					Value:    id,
					Path:     "/",
					HttpOnly: true,
					Secure:   secure,
					SameSite: http.SameSiteLaxMode,
				})
			}

			ctx := context.WithValue(r.Context(), sessionKey{}, manager.Store(id))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SessionFromContext returns the request's session store, nil outside
// Session.
func SessionFromContext(ctx context.Context) ports.SessionStore {
	s, _ := ctx.Value(sessionKey{}).(ports.SessionStore)
	return s
}
