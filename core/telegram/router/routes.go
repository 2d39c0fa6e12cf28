// Package router binds Telebot endpoints to a single update handler and
// logs one summary line per handled update.
package router

import (
	"log/slog"
	"strings"

	"github.com/m3rciful/starshop/core/logger"
	tg "github.com/m3rciful/starshop/core/telegram"
	"github.com/m3rciful/starshop/core/telegram/callbacks"

	tele "gopkg.in/telebot.v4"
)

// MessageEndpoints are the message kinds forwarded to the handler. Kinds a
// conversation step cannot use still arrive so the step can say so.
var MessageEndpoints = []string{
	tele.OnText,
	tele.OnPhoto,
	tele.OnVideo,
	tele.OnAnimation,
	tele.OnDocument,
	tele.OnSticker,
	tele.OnVoice,
	tele.OnAudio,
}

// CommandRoutes returns one route per registered command and alias.
func CommandRoutes(reg *tg.Registry, h tele.HandlerFunc) []tg.Route {
	if reg == nil || h == nil {
		return nil
	}
	endpoints := reg.Endpoints()
	routes := make([]tg.Route, 0, len(endpoints))
	for _, endpoint := range endpoints {
		name := "command." + normalizeHandlerName(endpoint)
		routes = append(routes, tg.Route{
			Endpoint: endpoint,
			Handler: func(c tele.Context) error {
				return handleWithSummary(c, name, h)
			},
		})
	}
	return routes
}

// CallbackRoute routes every inline button press to h.
func CallbackRoute(h tele.HandlerFunc) tg.Route {
	return tg.Route{
		Endpoint: tele.OnCallback,
		Handler: func(c tele.Context) error {
			data := callbacks.Data(c.Callback())
			key := data
			if i := strings.IndexByte(data, '_'); i > 0 {
				key = data[:i]
			}
			return handleWithSummary(c, "callback."+normalizeHandlerName(key), h,
				slog.String("cb_data", logger.SanitizeLimit(data, 64)),
			)
		},
	}
}

// MessageRoutes routes plain messages of every kind in MessageEndpoints to h.
func MessageRoutes(h tele.HandlerFunc) []tg.Route {
	routes := make([]tg.Route, 0, len(MessageEndpoints))
	for _, endpoint := range MessageEndpoints {
		name := "message." + strings.TrimPrefix(endpoint, "\a")
		routes = append(routes, tg.Route{
			Endpoint: endpoint,
			Handler: func(c tele.Context) error {
				return handleWithSummary(c, name, h)
			},
		})
	}
	return routes
}

// PaymentRoutes routes pre-checkout queries and successful payments to h.
func PaymentRoutes(h tele.HandlerFunc) []tg.Route {
	return []tg.Route{
		{
			Endpoint: tele.OnCheckout,
			Handler: func(c tele.Context) error {
				return handleWithSummary(c, "payment.pre_checkout", h)
			},
		},
		{
			Endpoint: tele.OnPayment,
			Handler: func(c tele.Context) error {
				return handleWithSummary(c, "payment.success", h)
			},
		},
	}
}

// Routes assembles every storefront route.
func Routes(reg *tg.Registry, h tele.HandlerFunc) []tg.Route {
	routes := CommandRoutes(reg, h)
	routes = append(routes, CallbackRoute(h))
	routes = append(routes, MessageRoutes(h)...)
	routes = append(routes, PaymentRoutes(h)...)
	logger.Info(logger.Background(), logger.CompTGWire, "wire.complete",
		slog.Int("commands", reg.Len()),
		slog.Int("routes", len(routes)),
	)
	return routes
}
