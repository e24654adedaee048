package middleware

import (
	"net/http"

	"ixp-grapher/pkg/auth"
	pkgerrors "ixp-grapher/pkg/errors"

	"go.uber.org/zap"
)

// RateLimit limits requests per user, or per client address for anonymous
// callers. Run it after Principal.
func RateLimit(limiter auth.RateLimiter, requestsPerMinute int, errs *pkgerrors.ErrorHandler, logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := "ip:" + ClientIP(r)
			if p := auth.PrincipalFromContext(r.Context()); p.IsAuthenticated() {
				key = "user:" + p.UserID
			}

			allowed, err := limiter.Allow(r.Context(), key)
			if err != nil {
				logger.Error("Rate limiter error", zap.Error(err))
				errs.Handle(w, r, err)
				return
			}
			if !allowed {
				errs.Handle(w, r, pkgerrors.NewRateLimitError(requestsPerMinute, "minute"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
