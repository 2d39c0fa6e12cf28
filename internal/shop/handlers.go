package shop

import (
	"context"
	"log/slog"

	"github.com/m3rciful/starshop/core/logger"
	"github.com/m3rciful/starshop/internal/chat"
	"github.com/m3rciful/starshop/internal/domain"
	"github.com/m3rciful/starshop/internal/session"
)

// actionReply is the acknowledgement sent for a button press. Each action is
// answered exactly once, even when the handler fails.
type actionReply struct {
	text  string
	alert bool
}

func (r *Router) handleAction(ctx context.Context, ev chat.Event) (err error) {
	reply := actionReply{}
	defer func() {
		if ev.ActionID == "" {
			return
		}
		if ansErr := r.d.Out.AnswerAction(ctx, ev.ActionID, reply.text, reply.alert); ansErr != nil {
			logger.Warn(ctx, logger.CompShop, "action.answer",
				slog.String("status", "fail"),
				logger.Err(ansErr),
			)
		}
	}()

	a := ParseAction(ev.Action)
	if a.Kind == ActionUnknown {
		logger.Debug(ctx, logger.CompShop, "action.unknown",
			slog.String("status", "skip"),
			slog.String("data", logger.SanitizeLimit(ev.Action, 64)),
		)
		return nil
	}
	if a.Kind.Admin() && !r.authorized(ctx, ev) {
		reply = actionReply{text: textAccessDenied, alert: true}
		return nil
	}

	switch a.Kind {
	case ActionBuy:
		// A missing product is reported to the buyer by the coordinator.
		_, err := r.d.Payments.Invoice(ctx, r.buyer(ev), a.ProductID)
		return err

	case ActionAdminAddProduct:
		if _, err := r.d.Sessions.Start(ctx, ev.SenderID, session.FlowAddProduct); err != nil {
			return err
		}
		return r.send(ctx, ev.SenderID, prompt(textAskName))

	case ActionAdminEditWelcome:
		if _, err := r.d.Sessions.Start(ctx, ev.SenderID, session.FlowEditWelcome); err != nil {
			return err
		}
		return r.send(ctx, ev.SenderID, prompt(textAskWelcomeText))

	case ActionAdminListProducts:
		return r.sendProductList(ctx, ev.SenderID)

	case ActionAdminStats:
		stats, err := r.d.Store.GetStats(ctx)
		if err != nil {
			return err
		}
		products, err := r.d.Store.ListProducts(ctx)
		if err != nil {
			return err
		}
		return r.send(ctx, ev.SenderID, statsView(stats, len(products)))

	case ActionAdminCancel:
		if err := r.d.Sessions.Reset(ctx, ev.SenderID); err != nil {
			return err
		}
		reply = actionReply{text: textCancelled}
		return r.send(ctx, ev.SenderID, adminMenuView())

	case ActionAdminBack:
		return r.send(ctx, ev.SenderID, adminMenuView())

	case ActionAdminView:
		p, err := r.d.Store.GetProduct(ctx, a.ProductID)
		if domain.HasCode(err, domain.CodeNotFound) {
			reply = actionReply{text: textProductNotFound, alert: true}
			return nil
		}
		if err != nil {
			return err
		}
		return r.send(ctx, ev.SenderID, productCardView(p))

	case ActionAdminDelete:
		if err := r.d.Store.DeleteProduct(ctx, a.ProductID); err != nil {
			return err
		}
		logger.Info(ctx, logger.CompShop, "product.deleted", slog.String("product_id", a.ProductID))
		reply = actionReply{text: textProductDeleted, alert: true}
		return r.sendProductList(ctx, ev.SenderID)
	}
	return nil
}

func (r *Router) sendProductList(ctx context.Context, to int64) error {
	products, err := r.d.Store.ListProducts(ctx)
	if err != nil {
		return err
	}
	return r.send(ctx, to, productListView(products))
}
