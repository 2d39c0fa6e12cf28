package telegram

import (
	"strings"
	"time"

	coreconfig "github.com/m3rciful/starshop/core/config"
	"github.com/m3rciful/starshop/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// DefaultMiddlewares builds the shared middleware chain: panic recovery,
// per-update context and logging, metrics, then rate limiting when
// configured. obs and onLimited may be nil.
func DefaultMiddlewares(cfg *coreconfig.Config, obs middleware.UpdateObserver, onLimited tele.HandlerFunc) []Middleware {
	mws := []Middleware{
		{Name: "recover", Use: middleware.RecoverMiddleware},
		{Name: "logger", Use: middleware.LoggerMiddleware},
	}
	if obs != nil {
		mws = append(mws, Middleware{Name: "metrics", Use: middleware.MetricsMiddleware(obs)})
	}

	if cfg == nil {
		return mws
	}
	interval := time.Duration(cfg.RateLimit.IntervalMS) * time.Millisecond
	if interval <= 0 {
		return mws
	}
	exclude := make(map[string]struct{}, len(cfg.RateLimit.ExcludeUpdates))
	for _, kind := range cfg.RateLimit.ExcludeUpdates {
		exclude[strings.ToLower(kind)] = struct{}{}
	}
	return append(mws, Middleware{
		Name: "rate_limit",
		Use: middleware.RateLimitMiddleware(middleware.RateLimitOptions{
			Interval:  interval,
			Exclude:   exclude,
			OnLimited: onLimited,
		}),
	})
}
