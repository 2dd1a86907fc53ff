package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	apperrors "github.com/johnquangdev/call-insight/errors"
)

// RateLimitConfig bounds requests per client IP.
type RateLimitConfig struct {
	// PerSecond is the sustained rate. Zero disables limiting.
	PerSecond float64
	Burst     int
	// ExpiresIn drops idle visitors from the in-memory store.
	ExpiresIn time.Duration
}

// RateLimit returns an echo middleware limiting each client IP with a token
// bucket. Rejections carry the TOO_MANY_REQUESTS error code.
func RateLimit(cfg RateLimitConfig) echo.MiddlewareFunc {
	if cfg.PerSecond <= 0 {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	if cfg.Burst <= 0 {
		cfg.Burst = int(cfg.PerSecond) * 2
		if cfg.Burst < 1 {
			cfg.Burst = 1
		}
	}
	if cfg.ExpiresIn <= 0 {
		cfg.ExpiresIn = 3 * time.Minute
	}

	store := echomw.NewRateLimiterMemoryStoreWithConfig(echomw.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(cfg.PerSecond),
		Burst:     cfg.Burst,
		ExpiresIn: cfg.ExpiresIn,
	})
	return echomw.RateLimiterWithConfig(echomw.RateLimiterConfig{
		Store: store,
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return apperrors.ErrForbidden("Unable to identify client")
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			return apperrors.ErrTooManyRequests()
		},
	})
}
