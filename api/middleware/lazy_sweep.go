package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/clips-backend/pkg/logger"
)

const defaultSweepTimeout = 5 * time.Second

type planExpirer interface {
	ExpireIfDue(ctx context.Context, businessID uuid.UUID) (bool, error)
}

// LazySweep expires the calling business's plan in the background when its
// window has closed. The sweep never blocks or fails the request.
func LazySweep(expirer planExpirer, timeout time.Duration, logg *logger.Logger) func(http.Handler) http.Handler {
	if timeout <= 0 {
		timeout = defaultSweepTimeout
	}
	return func(next http.Handler) http.Handler {
		if expirer == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if businessID, ok := BusinessIDFromContext(r.Context()); ok {
				go sweep(context.WithoutCancel(r.Context()), expirer, businessID, timeout, logg)
			}
			next.ServeHTTP(w, r)
		})
	}
}

func sweep(ctx context.Context, expirer planExpirer, businessID uuid.UUID, timeout time.Duration, logg *logger.Logger) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	defer func() {
		if rec := recover(); rec != nil && logg != nil {
			logg.Warn(logg.WithField(ctx, "panic", rec), "lazy sweep panicked")
		}
	}()
	expired, err := expirer.ExpireIfDue(ctx, businessID)
	if logg == nil {
		return
	}
	if err != nil {
		logg.Error(ctx, "lazy sweep failed", err)
		return
	}
	if expired {
		logg.Info(ctx, "lazy sweep expired plan")
	}
}
