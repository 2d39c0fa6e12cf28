// Package payments runs the invoice, pre-checkout and fulfillment phases of
// a purchase. Fulfillment is idempotent per payment occurrence.
package payments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/m3rciful/starshop/core/logger"
	"github.com/m3rciful/starshop/core/telegram/format"
	"github.com/m3rciful/starshop/internal/chat"
	"github.com/m3rciful/starshop/internal/domain"
	"github.com/m3rciful/starshop/internal/store"
)

// DefaultCurrency is Telegram Stars.
const DefaultCurrency = "XTR"

// Invoice is the payment request shown to the buyer.
type Invoice struct {
	Title         string
	Description   string
	Payload       string
	Currency      string
	Price         int64
	// ProviderToken is empty for Telegram Stars.
	ProviderToken string
}

// Gateway is the platform payment capability.
type Gateway interface {
	IssueInvoice(ctx context.Context, to int64, inv Invoice) error
	AnswerPreCheckout(ctx context.Context, queryID string, ok bool, reason string) error
}

// Ledger is the part of the store the coordinator depends on.
type Ledger interface {
	GetProduct(ctx context.Context, id string) (domain.Product, error)
	RecordOrder(ctx context.Context, req store.OrderRequest) (domain.Order, bool, error)
}

// Recorder receives payment counters. *metrics.Metrics satisfies it.
type Recorder interface {
	OrderRecorded(price int64)
	DuplicatePayment()
	FulfillmentRace()
	NotifyFailed()
}

// Notifier alerts administrators. Delivery is best-effort.
type Notifier interface {
	NotifyAdmins(ctx context.Context, msg chat.Message)
}

// Buyer identifies the paying user.
type Buyer struct {
	ID       int64
	Username string
}

// Mention renders the buyer for admin-facing text.
func (b Buyer) Mention() string {
	return format.Mention(b.Username, b.ID)
}

// Outcome classifies a fulfillment attempt.
type Outcome string

const (
	OutcomeFulfilled Outcome = "fulfilled"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeRace      Outcome = "race"
)

// Result describes a processed payment.
type Result struct {
	Outcome Outcome
	Order   domain.Order
}

// Options tunes coordinator behaviour.
type Options struct {
	Currency      string
	ProviderToken string
	// StrictPreCheckout re-validates product existence and price before
	// approving a charge. When false every query is approved.
	StrictPreCheckout bool
	Recorder          Recorder
}

type noopRecorder struct{}

func (noopRecorder) OrderRecorded(int64) {}
func (noopRecorder) DuplicatePayment()   {}
func (noopRecorder) FulfillmentRace()    {}
func (noopRecorder) NotifyFailed()       {}

// Coordinator drives the three payment phases.
type Coordinator struct {
	ledger   Ledger
	gateway  Gateway
	out      chat.Outbound
	notifier Notifier
	opts     Options
}

// NewCoordinator wires a coordinator. notifier may be nil.
func NewCoordinator(ledger Ledger, gateway Gateway, out chat.Outbound, notifier Notifier, opts Options) *Coordinator {
	if strings.TrimSpace(opts.Currency) == "" {
		opts.Currency = DefaultCurrency
	}
	if opts.Recorder == nil {
		opts.Recorder = noopRecorder{}
	}
	return &Coordinator{ledger: ledger, gateway: gateway, out: out, notifier: notifier, opts: opts}
}

// Invoice issues an invoice for productID. It reports false after telling
// the buyer when the product does not exist.
func (c *Coordinator) Invoice(ctx context.Context, buyer Buyer, productID string) (bool, error) {
	p, err := c.ledger.GetProduct(ctx, productID)
	if errors.Is(err, domain.ErrNotFound) {
		logger.Info(ctx, logger.CompPayments, "invoice.not_found",
			slog.String("status", "skip"),
			slog.String("product_id", productID),
		)
		if err := c.out.Send(ctx, buyer.ID, chat.Text(textProductNotFound)); err != nil {
			return false, fmt.Errorf("send not found: %w", err)
		}
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("invoice lookup: %w", err)
	}

	inv := Invoice{
		Title:         p.Name,
		Description:   p.Description,
		Payload:       EncodePayload(p.ID),
		Currency:      c.opts.Currency,
		Price:         p.Price,
		ProviderToken: c.opts.ProviderToken,
	}
	if err := c.gateway.IssueInvoice(ctx, buyer.ID, inv); err != nil {
		return false, fmt.Errorf("issue invoice: %w", err)
	}
	logger.Info(ctx, logger.CompPayments, "invoice.issued",
		slog.String("product_id", p.ID),
		slog.Int64("price", p.Price),
	)
	return true, nil
}

// PreCheckout answers the platform's approval request.
func (c *Coordinator) PreCheckout(ctx context.Context, q chat.PreCheckout) error {
	ok, reason, checkErr := c.approve(ctx, q)
	if checkErr != nil {
		ok, reason = false, reasonUnavailable
	}
	if err := c.gateway.AnswerPreCheckout(ctx, q.QueryID, ok, reason); err != nil {
		return errors.Join(checkErr, fmt.Errorf("answer pre-checkout: %w", err))
	}
	if checkErr != nil {
		return checkErr
	}
	status := "ok"
	if !ok {
		status = "denied"
	}
	logger.Info(ctx, logger.CompPayments, "pre_checkout.answered",
		slog.String("status", status),
		slog.Int64("price", q.Total),
	)
	return nil
}

func (c *Coordinator) approve(ctx context.Context, q chat.PreCheckout) (bool, string, error) {
	if !c.opts.StrictPreCheckout {
		return true, "", nil
	}
	if q.Currency != c.opts.Currency {
		return false, reasonCurrency, nil
	}
	id, err := DecodePayload(q.Payload)
	if err != nil {
		return false, reasonUnavailable, nil
	}
	p, err := c.ledger.GetProduct(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return false, reasonUnavailable, nil
	}
	if err != nil {
		return false, "", fmt.Errorf("pre-checkout lookup: %w", err)
	}
	if p.Price != q.Total {
		return false, reasonPriceMismatch, nil
	}
	return true, "", nil
}

// Fulfill records the order for a completed payment and delivers the
// material. A replayed payment is a successful no-op.
func (c *Coordinator) Fulfill(ctx context.Context, buyer Buyer, pay chat.Payment) (Result, error) {
	productID, err := DecodePayload(pay.Payload)
	if err != nil {
		productID = pay.Payload
	}

	var p domain.Product
	if err == nil {
		p, err = c.ledger.GetProduct(ctx, productID)
	}
	if errors.Is(err, domain.ErrNotFound) || errors.Is(err, ErrBadPayload) {
		return c.race(ctx, buyer, productID)
	}
	if err != nil {
		return Result{}, fmt.Errorf("fulfill lookup: %w", err)
	}

	order, created, err := c.ledger.RecordOrder(ctx, store.OrderRequest{
		UserID:      buyer.ID,
		DisplayName: buyer.Username,
		Product:     p,
		PaymentID:   pay.ChargeID,
	})
	if err != nil {
		return Result{}, fmt.Errorf("record order: %w", err)
	}
	if !created {
		c.opts.Recorder.DuplicatePayment()
		logger.Info(ctx, logger.CompPayments, "payment.duplicate",
			slog.String("status", "duplicate"),
			slog.Uint64("order_id", order.ID),
		)
		return Result{Outcome: OutcomeDuplicate, Order: order}, nil
	}
	c.opts.Recorder.OrderRecorded(order.Price)
	logger.Info(ctx, logger.CompPayments, "payment.fulfilled",
		slog.Uint64("order_id", order.ID),
		slog.String("product_id", p.ID),
		slog.Int64("price", order.Price),
	)

	if err := c.deliver(ctx, buyer, p); err != nil {
		// The order is recorded, so a replay will not deliver again.
		c.notify(ctx, deliveryAlert(buyer, order))
		return Result{Outcome: OutcomeFulfilled, Order: order}, err
	}
	c.notify(ctx, saleNotice(buyer, p))
	return Result{Outcome: OutcomeFulfilled, Order: order}, nil
}

func (c *Coordinator) deliver(ctx context.Context, buyer Buyer, p domain.Product) error {
	if err := c.out.Send(ctx, buyer.ID, purchaseConfirmation(p)); err != nil {
		return fmt.Errorf("send confirmation: %w", err)
	}
	msg, err := materialMessage(p.Material)
	if err != nil {
		return err
	}
	if err := c.out.Send(ctx, buyer.ID, msg); err != nil {
		return fmt.Errorf("deliver material: %w", err)
	}
	return nil
}

func (c *Coordinator) race(ctx context.Context, buyer Buyer, productID string) (Result, error) {
	c.opts.Recorder.FulfillmentRace()
	logger.Warn(ctx, logger.CompPayments, "payment.race",
		slog.String("status", "fail"),
		slog.String("product_id", productID),
		logger.Err(domain.ErrFulfillmentRace),
		slog.String("err_code", string(domain.CodeFulfillmentRace)),
	)
	c.notify(ctx, raceAlert(buyer, productID))
	if err := c.out.Send(ctx, buyer.ID, raceApology(productID)); err != nil {
		return Result{Outcome: OutcomeRace}, fmt.Errorf("send race apology: %w", err)
	}
	return Result{Outcome: OutcomeRace}, nil
}

func (c *Coordinator) notify(ctx context.Context, msg chat.Message) {
	if c.notifier == nil {
		return
	}
	c.notifier.NotifyAdmins(ctx, msg)
}
