package tgbot

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/m3rciful/starshop/core/logger"
	tghelpers "github.com/m3rciful/starshop/core/telegram/helpers"
	"github.com/m3rciful/starshop/core/telegram/keyboard"
	"github.com/m3rciful/starshop/internal/chat"
	"github.com/m3rciful/starshop/internal/payments"

	tele "gopkg.in/telebot.v4"
)

// ErrNotBound is returned by Client calls made before Bind.
var ErrNotBound = errors.New("tgbot: bot not bound")

// API is the subset of *tele.Bot used by Client.
type API interface {
	Send(to tele.Recipient, what any, opts ...any) (*tele.Message, error)
	Respond(c *tele.Callback, resp ...*tele.CallbackResponse) error
	Accept(query *tele.PreCheckoutQuery, errorMessage ...string) error
}

// Client implements chat.Outbound and payments.Gateway over the Bot API.
// The bot is created by the runtime after the storefront is wired, so it is
// bound late.
type Client struct {
	api atomic.Pointer[API]
}

var (
	_ chat.Outbound    = (*Client)(nil)
	_ payments.Gateway = (*Client)(nil)
)

// NewClient returns an unbound client.
func NewClient() *Client {
	return &Client{}
}

// Bind attaches the bot. It is safe to call while updates are handled.
func (c *Client) Bind(api API) {
	c.api.Store(&api)
}

func (c *Client) bot() (API, error) {
	p := c.api.Load()
	if p == nil || *p == nil {
		return nil, ErrNotBound
	}
	return *p, nil
}

// Send implements chat.Outbound.
func (c *Client) Send(ctx context.Context, to int64, msg chat.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	api, err := c.bot()
	if err != nil {
		return err
	}
	what, opts := render(msg)
	if _, err := api.Send(tele.ChatID(to), what, opts); err != nil {
		logger.Debug(ctx, logger.CompTGSender, "send", slog.String("status", "fail"), slog.Int64("to", to), logger.Err(err))
		return err
	}
	tghelpers.CountMessage(ctx, keyboard.HasKeyboard(opts))
	return nil
}

// render maps a chat message onto a Telebot sendable and its options.
func render(msg chat.Message) (any, *tele.SendOptions) {
	opts := &tele.SendOptions{}
	if msg.HTML {
		opts.ParseMode = tele.ModeHTML
	}
	if kb := markup(msg.Keyboard); kb != nil {
		opts.ReplyMarkup = kb
	}

	file := tele.File{FileID: msg.Ref}
	switch msg.Kind {
	case chat.MediaPhoto:
		return &tele.Photo{File: file, Caption: msg.Text}, opts
	case chat.MediaVideo:
		return &tele.Video{File: file, Caption: msg.Text}, opts
	case chat.MediaAnimation:
		return &tele.Animation{File: file, Caption: msg.Text}, opts
	case chat.MediaDocument:
		return &tele.Document{File: file, Caption: msg.Text}, opts
	}
	return msg.Text, opts
}

func markup(kb chat.Keyboard) *tele.ReplyMarkup {
	rows := make([][]keyboard.InlineBtn, 0, len(kb))
	for _, row := range kb {
		r := make([]keyboard.InlineBtn, 0, len(row))
		for _, b := range row {
			r = append(r, keyboard.InlineBtn{Text: b.Label, Data: b.Data})
		}
		rows = append(rows, r)
	}
	return keyboard.InlineButtonsRows(rows...)
}

// AnswerAction implements chat.Outbound.
func (c *Client) AnswerAction(_ context.Context, actionID, text string, alert bool) error {
	api, err := c.bot()
	if err != nil {
		return err
	}
	return api.Respond(&tele.Callback{ID: actionID}, &tele.CallbackResponse{Text: text, ShowAlert: alert})
}

// IssueInvoice implements payments.Gateway.
func (c *Client) IssueInvoice(ctx context.Context, to int64, inv payments.Invoice) error {
	api, err := c.bot()
	if err != nil {
		return err
	}
	invoice := &tele.Invoice{
		Title:       inv.Title,
		Description: inv.Description,
		Payload:     inv.Payload,
		Currency:    inv.Currency,
		Token:       inv.ProviderToken,
		Prices:      []tele.Price{{Label: inv.Title, Amount: int(inv.Price)}},
	}
	if _, err := api.Send(tele.ChatID(to), invoice); err != nil {
		return err
	}
	tghelpers.CountMessage(ctx, false)
	return nil
}

// AnswerPreCheckout implements payments.Gateway.
func (c *Client) AnswerPreCheckout(_ context.Context, queryID string, ok bool, reason string) error {
	api, err := c.bot()
	if err != nil {
		return err
	}
	q := &tele.PreCheckoutQuery{ID: queryID}
	if ok {
		return api.Accept(q)
	}
	return api.Accept(q, reason)
}
