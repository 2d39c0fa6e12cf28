// Package shop routes storefront events to catalog browsing, payment steps
// and the admin data-entry flows.
//
// Payment and pre-checkout events bypass the conversation state. Every other
// event takes a per-user lock, so one user's updates are handled in order
// while different users proceed in parallel.
package shop

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/m3rciful/starshop/core/logger"
	"github.com/m3rciful/starshop/core/state"
	"github.com/m3rciful/starshop/internal/chat"
	"github.com/m3rciful/starshop/internal/domain"
	"github.com/m3rciful/starshop/internal/payments"
	"github.com/m3rciful/starshop/internal/session"
)

// Store is the catalog side of the persistence layer used by the router.
type Store interface {
	PutProduct(ctx context.Context, p domain.Product) (domain.Product, error)
	GetProduct(ctx context.Context, id string) (domain.Product, error)
	ListProducts(ctx context.Context) ([]domain.Product, error)
	DeleteProduct(ctx context.Context, id string) error
	GetStats(ctx context.Context) (domain.Stats, error)
	GetWelcome(ctx context.Context) (domain.Welcome, error)
	SetWelcome(ctx context.Context, w domain.Welcome) error
}

// Payments is the payment workflow used by the router.
type Payments interface {
	Invoice(ctx context.Context, buyer payments.Buyer, productID string) (bool, error)
	PreCheckout(ctx context.Context, q chat.PreCheckout) error
	Fulfill(ctx context.Context, buyer payments.Buyer, pay chat.Payment) (payments.Result, error)
}

// Guard decides who may run admin operations.
type Guard interface {
	IsAuthorized(userID int64) bool
}

// ErrorRecorder counts unexpected failures. *metrics.Metrics satisfies it.
type ErrorRecorder interface {
	Error(component string)
}

// Deps are the router collaborators. Errors may be nil.
type Deps struct {
	Store    Store
	Sessions *session.Machine
	Guard    Guard
	Payments Payments
	Out      chat.Outbound
	Errors   ErrorRecorder
}

var errHandlerPanic = errors.New("handler panic")

type stepFunc func(ctx context.Context, ev chat.Event) error

// Router dispatches chat events.
type Router struct {
	d     Deps
	locks *userLocks
	steps map[state.State]stepFunc
}

// NewRouter builds a router over d.
func NewRouter(d Deps) *Router {
	r := &Router{d: d, locks: newUserLocks()}
	r.steps = map[state.State]stepFunc{
		session.AwaitingProductName:        r.stepProductName,
		session.AwaitingProductDescription: r.stepProductDescription,
		session.AwaitingProductPrice:       r.stepProductPrice,
		session.AwaitingProductMaterial:    r.stepProductMaterial,
		session.AwaitingWelcomeText:        r.stepWelcomeText,
		session.AwaitingWelcomeMedia:       r.stepWelcomeMedia,
	}
	return r
}

// HandlerName names the handler an event is routed to, for logs and metrics.
func HandlerName(ev chat.Event) string {
	switch ev.Kind {
	case chat.KindCommand:
		return "command." + ev.Command
	case chat.KindAction:
		return "action." + ParseAction(ev.Action).Kind.String()
	case chat.KindPreCheckout:
		return "payment.pre_checkout"
	case chat.KindPayment:
		return "payment.fulfill"
	}
	return string(ev.Kind)
}

// Dispatch handles one event. A returned error has already been reported to
// the sender as a generic failure message.
func (r *Router) Dispatch(ctx context.Context, ev chat.Event) error {
	name := HandlerName(ev)
	ctx = logger.WithHandler(ctx, name)

	err := r.route(ctx, ev)
	if err != nil {
		r.fail(ctx, ev, name, err)
	}
	return err
}

// route runs the handler for ev. A handler panic is returned as an error
// after the user's lock has been released.
func (r *Router) route(ctx context.Context, ev chat.Event) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%w: %v", errHandlerPanic, rec)
			logger.Error(ctx, logger.CompShop, "panic",
				slog.String("status", "fail"),
				slog.Any("err", rec),
				slog.String("stack", string(debug.Stack())),
			)
		}
	}()

	switch ev.Kind {
	case chat.KindPayment:
		return r.handlePayment(ctx, ev)
	case chat.KindPreCheckout:
		return r.handlePreCheckout(ctx, ev)
	}
	release := r.locks.lock(ev.SenderID)
	defer release()
	return r.dispatchLocked(ctx, ev)
}

func (r *Router) dispatchLocked(ctx context.Context, ev chat.Event) error {
	switch ev.Kind {
	case chat.KindCommand:
		return r.handleCommand(ctx, ev)
	case chat.KindAction:
		return r.handleAction(ctx, ev)
	case chat.KindMessage:
		return r.handleMessage(ctx, ev)
	}
	logger.Debug(ctx, logger.CompShop, "event.ignored", slog.String("kind", string(ev.Kind)))
	return nil
}

func (r *Router) fail(ctx context.Context, ev chat.Event, handler string, err error) {
	if r.d.Errors != nil {
		r.d.Errors.Error(logger.CompShop)
	}
	attrs := []slog.Attr{
		slog.String("status", "fail"),
		slog.String("handler", handler),
		logger.Err(err),
	}
	var coded interface{ ErrorCode() string }
	if errors.As(err, &coded) {
		attrs = append(attrs, slog.String("err_code", coded.ErrorCode()))
	}
	logger.Error(ctx, logger.CompShop, "handler.fail", attrs...)

	if ev.SenderID == 0 {
		return
	}
	if sendErr := r.d.Out.Send(ctx, ev.SenderID, chat.Text(textGenericError)); sendErr != nil {
		logger.Warn(ctx, logger.CompShop, "handler.fail.notify", slog.String("status", "fail"), logger.Err(sendErr))
	}
}

func (r *Router) buyer(ev chat.Event) payments.Buyer {
	return payments.Buyer{ID: ev.SenderID, Username: ev.SenderName}
}

func (r *Router) send(ctx context.Context, to int64, msg chat.Message) error {
	return r.d.Out.Send(ctx, to, msg)
}

func (r *Router) handlePayment(ctx context.Context, ev chat.Event) error {
	if ev.Payment == nil {
		return domain.Invalidf("payment event without payment")
	}
	res, err := r.d.Payments.Fulfill(ctx, r.buyer(ev), *ev.Payment)
	if err != nil {
		return err
	}
	logger.Debug(ctx, logger.CompShop, "payment.handled", slog.String("outcome", string(res.Outcome)))
	return nil
}

func (r *Router) handlePreCheckout(ctx context.Context, ev chat.Event) error {
	if ev.PreCheckout == nil {
		return domain.Invalidf("pre-checkout event without query")
	}
	return r.d.Payments.PreCheckout(ctx, *ev.PreCheckout)
}

func (r *Router) handleCommand(ctx context.Context, ev chat.Event) error {
	switch ev.Command {
	case "start":
		return r.showWelcome(ctx, ev.SenderID)
	case "admin":
		if !r.authorized(ctx, ev) {
			return r.send(ctx, ev.SenderID, chat.Text(textAccessDenied))
		}
		return r.send(ctx, ev.SenderID, adminMenuView())
	case "cancel":
		return r.cancel(ctx, ev)
	}

	current, err := r.d.Sessions.Current(ctx, ev.SenderID)
	if err != nil {
		return err
	}
	if current == session.Idle {
		logger.Debug(ctx, logger.CompShop, "command.unknown",
			slog.String("status", "skip"),
			slog.String("command", ev.Command),
		)
		return nil
	}
	return r.handleStep(ctx, ev, current)
}

func (r *Router) handleMessage(ctx context.Context, ev chat.Event) error {
	current, err := r.d.Sessions.Current(ctx, ev.SenderID)
	if err != nil {
		return err
	}
	if current == session.Idle {
		logger.Debug(ctx, logger.CompShop, "message.unhandled", slog.String("status", "skip"))
		return nil
	}
	return r.handleStep(ctx, ev, current)
}

func (r *Router) showWelcome(ctx context.Context, to int64) error {
	w, err := r.d.Store.GetWelcome(ctx)
	if err != nil {
		return err
	}
	products, err := r.d.Store.ListProducts(ctx)
	if err != nil {
		return err
	}
	return r.send(ctx, to, welcomeView(w, products))
}

func (r *Router) cancel(ctx context.Context, ev chat.Event) error {
	current, err := r.d.Sessions.Current(ctx, ev.SenderID)
	if err != nil {
		return err
	}
	if current == session.Idle {
		return r.send(ctx, ev.SenderID, chat.Text(textNothingToCancel))
	}
	if err := r.d.Sessions.Reset(ctx, ev.SenderID); err != nil {
		return err
	}
	if r.d.Guard.IsAuthorized(ev.SenderID) {
		return r.send(ctx, ev.SenderID, chat.HTML(textCancelled+"\n\n"+textAdminMenu).WithKeyboard(adminKeyboard()))
	}
	return r.send(ctx, ev.SenderID, chat.Text(textCancelled))
}

// authorized runs the access guard. Refusals are logged at debug level only.
func (r *Router) authorized(ctx context.Context, ev chat.Event) bool {
	if r.d.Guard.IsAuthorized(ev.SenderID) {
		return true
	}
	logger.Debug(ctx, logger.CompShop, "access.denied",
		slog.String("status", "denied"),
		slog.String("err_code", string(domain.ErrUnauthorized.Code)),
	)
	return false
}
