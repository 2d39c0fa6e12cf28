// Package tgbot binds the storefront to Telegram through Telebot: it turns
// updates into chat events and chat messages into Bot API calls.
package tgbot

import (
	"strings"

	"github.com/m3rciful/starshop/core/telegram/callbacks"
	"github.com/m3rciful/starshop/internal/chat"

	tele "gopkg.in/telebot.v4"
)

// EventFromUpdate converts an update into a chat event. It reports false for
// updates the storefront does not handle or that carry no sender.
func EventFromUpdate(upd tele.Update) (chat.Event, bool) {
	switch {
	case upd.PreCheckoutQuery != nil:
		q := upd.PreCheckoutQuery
		if q.Sender == nil {
			return chat.Event{}, false
		}
		return chat.Event{
			Kind:       chat.KindPreCheckout,
			SenderID:   q.Sender.ID,
			SenderName: q.Sender.Username,
			PreCheckout: &chat.PreCheckout{
				QueryID:  q.ID,
				Payload:  q.Payload,
				Currency: q.Currency,
				Total:    int64(q.Total),
			},
		}, true

	case upd.Callback != nil:
		cb := upd.Callback
		if cb.Sender == nil {
			return chat.Event{}, false
		}
		return chat.Event{
			Kind:       chat.KindAction,
			SenderID:   cb.Sender.ID,
			SenderName: cb.Sender.Username,
			Action:     callbacks.Data(cb),
			ActionID:   cb.ID,
		}, true

	case upd.Message != nil:
		return eventFromMessage(upd.Message)
	}
	return chat.Event{}, false
}

func eventFromMessage(m *tele.Message) (chat.Event, bool) {
	if m.Sender == nil {
		return chat.Event{}, false
	}
	ev := chat.Event{SenderID: m.Sender.ID, SenderName: m.Sender.Username}

	if p := m.Payment; p != nil {
		ev.Kind = chat.KindPayment
		ev.Payment = &chat.Payment{
			Payload:  p.Payload,
			ChargeID: p.TelegramChargeID,
			Currency: p.Currency,
			Total:    int64(p.Total),
		}
		return ev, true
	}

	if name, args, ok := parseCommand(m.Text); ok {
		ev.Kind = chat.KindCommand
		ev.Command = name
		ev.Args = args
		return ev, true
	}

	ev.Kind = chat.KindMessage
	ev.Text = m.Text
	ev.Media = mediaOf(m)
	if ev.Media != nil {
		ev.Text = m.Caption
	}
	return ev, true
}

// parseCommand splits "/name@bot args" into its name and argument string.
func parseCommand(text string) (string, string, bool) {
	if !strings.HasPrefix(text, "/") {
		return "", "", false
	}
	head, args, _ := strings.Cut(strings.TrimPrefix(text, "/"), " ")
	head, _, _ = strings.Cut(head, "@")
	if head == "" {
		return "", "", false
	}
	return strings.ToLower(head), strings.TrimSpace(args), true
}

// mediaOf picks the attachment of m. Animations are checked before documents
// because Telegram sends GIFs with both fields set.
func mediaOf(m *tele.Message) *chat.Media {
	switch {
	case m.Photo != nil:
		return &chat.Media{Kind: chat.MediaPhoto, Ref: m.Photo.FileID}
	case m.Video != nil:
		return &chat.Media{Kind: chat.MediaVideo, Ref: m.Video.FileID}
	case m.Animation != nil:
		return &chat.Media{Kind: chat.MediaAnimation, Ref: m.Animation.FileID}
	case m.Document != nil:
		return &chat.Media{Kind: chat.MediaDocument, Ref: m.Document.FileID}
	}
	return nil
}
