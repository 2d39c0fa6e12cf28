package tgbot

import (
	"context"
	"log/slog"

	"github.com/m3rciful/starshop/core/logger"
	tg "github.com/m3rciful/starshop/core/telegram"
	"github.com/m3rciful/starshop/core/telegram/commands"
	tghelpers "github.com/m3rciful/starshop/core/telegram/helpers"
	"github.com/m3rciful/starshop/core/telegram/router"
	"github.com/m3rciful/starshop/internal/chat"

	tele "gopkg.in/telebot.v4"
)

// Dispatcher handles converted events. *shop.Router satisfies it.
type Dispatcher interface {
	Dispatch(ctx context.Context, ev chat.Event) error
}

// Handler converts each update and hands it to d.
func Handler(d Dispatcher) tele.HandlerFunc {
	return func(c tele.Context) error {
		ctx := tghelpers.BuildContext(c)
		ev, ok := EventFromUpdate(c.Update())
		if !ok {
			logger.Debug(ctx, logger.CompTG, "update.unhandled", slog.String("status", "skip"))
			return nil
		}
		return d.Dispatch(ctx, ev)
	}
}

// Registry declares the storefront commands. /admin is hidden from the
// public menu; /skip is only meaningful inside the welcome flow.
func Registry() *tg.Registry {
	reg := tg.NewRegistry()
	reg.RegisterCommand("/start", commands.Command{Description: "Open the catalog"})
	reg.RegisterCommand("/admin", commands.Command{Description: "Admin panel", AdminOnly: true})
	reg.RegisterCommand("/cancel", commands.Command{Description: "Cancel the current action"})
	reg.RegisterCommand("/skip", commands.Command{Description: "Skip the optional step", Hidden: true})
	return reg
}

// Routes binds every storefront endpoint to d.
func Routes(reg *tg.Registry, d Dispatcher) []tg.Route {
	return router.Routes(reg, Handler(d))
}
