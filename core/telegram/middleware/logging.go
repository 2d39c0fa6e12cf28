package middleware

import (
	"log/slog"
	"sync"
	"time"

	"github.com/m3rciful/starshop/core/logger"
	"github.com/m3rciful/starshop/core/telegram/callbacks"
	tghelpers "github.com/m3rciful/starshop/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// Update kinds used in logs, metrics and rate limit exclusions.
const (
	KindCallback    = "callback"
	KindMessage     = "message"
	KindPreCheckout = "pre_checkout"
	KindPayment     = "payment"
	KindOther       = "other"
)

// UpdateKind classifies an update. Successful payments arrive as messages
// and are reported separately.
func UpdateKind(upd tele.Update) string {
	switch {
	case upd.PreCheckoutQuery != nil:
		return KindPreCheckout
	case upd.Callback != nil:
		return KindCallback
	case upd.Message != nil && upd.Message.Payment != nil:
		return KindPayment
	case upd.Message != nil:
		return KindMessage
	}
	return KindOther
}

// recentUpdates keeps a short-lived set of processed update IDs so an update
// routed through several wrapped handlers is logged once.
var (
	recentMu     sync.Mutex
	recentUpdate = make(map[int]time.Time)
	keepFor      = 10 * time.Second
)

func alreadyLogged(updateID int) bool {
	now := time.Now()
	recentMu.Lock()
	defer recentMu.Unlock()
	for id, ts := range recentUpdate {
		if now.Sub(ts) > keepFor {
			delete(recentUpdate, id)
		}
	}
	if _, ok := recentUpdate[updateID]; ok {
		return true
	}
	recentUpdate[updateID] = now
	return false
}

// LoggerMiddleware prepares the per-update context and logs one receipt
// line per update at debug level.
func LoggerMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		upd := c.Update()
		user := c.Sender()
		chat := c.Chat()

		var chatID, userID int64
		if chat != nil {
			chatID = chat.ID
		}
		if user != nil {
			userID = user.ID
		}
		rid := logger.BuildRID(upd.ID, chatID, userID)
		c.Set("rid", rid)
		c.Set("update_start", time.Now())
		ctx := tghelpers.BuildContext(c)

		if logger.ShouldSampleDebug() && !alreadyLogged(upd.ID) {
			kind := UpdateKind(upd)
			attrs := []slog.Attr{
				slog.String("status", "ok"),
				slog.String("kind", kind),
			}
			if chat != nil {
				attrs = append(attrs, slog.String("chat_type", string(chat.Type)))
			}
			if user != nil && user.Username != "" {
				attrs = append(attrs, slog.String("username", logger.SanitizeLimit(user.Username, 64)))
			}
			switch kind {
			case KindCallback:
				attrs = append(attrs, slog.String("payload", logger.SanitizeLimit(callbacks.Data(upd.Callback), 128)))
			case KindPreCheckout:
				attrs = append(attrs,
					slog.String("payload", logger.SanitizeLimit(upd.PreCheckoutQuery.Payload, 128)),
					slog.Int("total", upd.PreCheckoutQuery.Total),
				)
			case KindPayment:
				attrs = append(attrs,
					slog.String("payload", logger.SanitizeLimit(upd.Message.Payment.Payload, 128)),
					slog.Int("total", upd.Message.Payment.Total),
				)
			case KindMessage:
				if t := c.Text(); t != "" {
					attrs = append(attrs, slog.String("payload", logger.SanitizeLimit(t, 256)))
				}
			}
			logger.Debug(ctx, logger.CompTG, "update.received", attrs...)
		}

		return next(c)
	}
}
