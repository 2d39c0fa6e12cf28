package middleware

import (
	"time"

	"github.com/m3rciful/starshop/core/logger"
	tghelpers "github.com/m3rciful/starshop/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// UpdateObserver receives one observation per handled update.
type UpdateObserver interface {
	ObserveUpdate(kind, status string, took time.Duration)
}

// MetricsMiddleware times each update and reports its kind and status to obs.
func MetricsMiddleware(obs UpdateObserver) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		if obs == nil {
			return next
		}
		return func(c tele.Context) error {
			start := time.Now()
			err := next(c)
			obs.ObserveUpdate(UpdateKind(c.Update()), logger.Outcome(err), time.Since(start))
			return err
		}
	}
}

// GetCounters reads the reply count and keyboard flag for the current update.
func GetCounters(c tele.Context) (int, bool) {
	ctx, ok := tghelpers.ContextFrom(c)
	if !ok {
		return 0, false
	}
	return tghelpers.CountersFrom(ctx).Snapshot()
}
