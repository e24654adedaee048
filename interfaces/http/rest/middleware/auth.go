package middleware

import (
	"net"
	"net/http"
	"strings"

	"ixp-grapher/pkg/auth"
	pkgerrors "ixp-grapher/pkg/errors"

	"go.uber.org/zap"
)

// Principal attaches the request principal. Requests without a token are
// anonymous; a token that fails validation is rejected. A nil validator
// treats every request as anonymous.
func Principal(validator *auth.JWTValidator, errs *pkgerrors.ErrorHandler, logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractToken(r)
			if validator == nil || token == "" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.Warn("Invalid token",
					zap.Error(err),
					zap.String("ip", ClientIP(r)),
					zap.String("path", r.URL.Path),
				)
				message := "Invalid token"
				switch err {
				case auth.ErrExpiredToken:
					message = "Token has expired"
				case auth.ErrInvalidSignature:
					message = "Invalid token signature"
				}
				errs.Handle(w, r, pkgerrors.NewUnauthorizedError(message))
				return
			}

			ctx := auth.WithPrincipal(r.Context(), claims.Principal())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// extractToken reads the bearer token from the Authorization header or the
// auth_token cookie.
func extractToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return strings.TrimSpace(parts[1])
		}
		return strings.TrimSpace(header)
	}
	if cookie, err := r.Cookie("auth_token"); err == nil {
		return cookie.Value
	}
	return ""
}

// ClientIP returns the caller's address. RealIP has already applied the
// forwarding headers to RemoteAddr.
func ClientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
