package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/calderonstudio/ranking-backend/api/responses"
	pkgerrors "github.com/calderonstudio/ranking-backend/pkg/errors"
	"github.com/calderonstudio/ranking-backend/pkg/logger"
)

type rateLimiterStore interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// RateLimit throttles requests per client IP using a fixed window counter.
// A nil store disables the limiter.
func RateLimit(scope string, limit int64, window time.Duration, store rateLimiterStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if store == nil || limit <= 0 || window <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			key := scope + ":" + clientIP(r)
			allowed, count, err := store.FixedWindowAllow(ctx, key, limit, window)
			if err != nil {
				// The limiter never takes the API down with it.
				if logg != nil {
					logg.Error(ctx, "rate limiter unavailable", err)
				}
				next.ServeHTTP(w, r)
				return
			}
			if !allowed {
				if logg != nil {
					lctx := logg.WithFields(ctx, map[string]any{"scope": scope, "count": count})
					logg.Warn(lctx, "request throttled")
				}
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeRateLimit, "too many requests"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		parts := strings.Split(fwd, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
