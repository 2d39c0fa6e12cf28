package tgbot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/starshop/internal/chat"
)

var alice = &tele.User{ID: 77, Username: "alice"}

func message(m tele.Message) tele.Update {
	m.Sender = alice
	m.Chat = &tele.Chat{ID: alice.ID}
	return tele.Update{ID: 1, Message: &m}
}

func TestEventFromCommand(t *testing.T) {
	cases := []struct {
		text, name, args string
	}{
		{"/start", "start", ""},
		{"/start@starshop_bot", "start", ""},
		{"/skip  now ", "skip", "now"},
		{"/ADMIN", "admin", ""},
	}
	for _, tc := range cases {
		ev, ok := EventFromUpdate(message(tele.Message{Text: tc.text}))
		require.True(t, ok, tc.text)
		assert.Equal(t, chat.KindCommand, ev.Kind, tc.text)
		assert.Equal(t, tc.name, ev.Command, tc.text)
		assert.Equal(t, tc.args, ev.Args, tc.text)
		assert.Equal(t, int64(77), ev.SenderID)
		assert.Equal(t, "alice", ev.SenderName)
	}

	ev, ok := EventFromUpdate(message(tele.Message{Text: "/"}))
	require.True(t, ok)
	assert.Equal(t, chat.KindMessage, ev.Kind)
}

func TestEventFromMessage(t *testing.T) {
	ev, ok := EventFromUpdate(message(tele.Message{Text: "Secret content"}))
	require.True(t, ok)
	assert.Equal(t, chat.Event{Kind: chat.KindMessage, SenderID: 77, SenderName: "alice", Text: "Secret content"}, ev)

	photo := &tele.Photo{File: tele.File{FileID: "ph"}}
	ev, _ = EventFromUpdate(message(tele.Message{Photo: photo, Caption: "cap"}))
	assert.Equal(t, &chat.Media{Kind: chat.MediaPhoto, Ref: "ph"}, ev.Media)
	assert.Equal(t, "cap", ev.Text)

	gif := tele.Message{
		Animation: &tele.Animation{File: tele.File{FileID: "gif"}},
		Document:  &tele.Document{File: tele.File{FileID: "gif"}},
	}
	ev, _ = EventFromUpdate(message(gif))
	assert.Equal(t, chat.MediaAnimation, ev.Media.Kind)

	ev, _ = EventFromUpdate(message(tele.Message{Document: &tele.Document{File: tele.File{FileID: "doc"}}}))
	assert.Equal(t, &chat.Media{Kind: chat.MediaDocument, Ref: "doc"}, ev.Media)

	ev, _ = EventFromUpdate(message(tele.Message{Video: &tele.Video{File: tele.File{FileID: "v"}}}))
	assert.Equal(t, chat.MediaVideo, ev.Media.Kind)

	ev, ok = EventFromUpdate(message(tele.Message{Sticker: &tele.Sticker{File: tele.File{FileID: "st"}}}))
	require.True(t, ok)
	assert.Equal(t, chat.KindMessage, ev.Kind)
	assert.Nil(t, ev.Media)
	assert.Empty(t, ev.Text)
}

func TestEventFromPayment(t *testing.T) {
	ev, ok := EventFromUpdate(message(tele.Message{Payment: &tele.Payment{
		Currency:         "XTR",
		Total:            100,
		Payload:          "product_prod_1",
		TelegramChargeID: "charge-1",
	}}))
	require.True(t, ok)
	assert.Equal(t, chat.KindPayment, ev.Kind)
	assert.Equal(t, &chat.Payment{Payload: "product_prod_1", ChargeID: "charge-1", Currency: "XTR", Total: 100}, ev.Payment)
}

func TestEventFromPreCheckoutAndCallback(t *testing.T) {
	ev, ok := EventFromUpdate(tele.Update{PreCheckoutQuery: &tele.PreCheckoutQuery{
		ID: "q1", Sender: alice, Currency: "XTR", Payload: "product_x", Total: 5,
	}})
	require.True(t, ok)
	assert.Equal(t, chat.KindPreCheckout, ev.Kind)
	assert.Equal(t, &chat.PreCheckout{QueryID: "q1", Payload: "product_x", Currency: "XTR", Total: 5}, ev.PreCheckout)

	ev, ok = EventFromUpdate(tele.Update{Callback: &tele.Callback{ID: "cb", Sender: alice, Data: "buy_prod_1"}})
	require.True(t, ok)
	assert.Equal(t, chat.Event{Kind: chat.KindAction, SenderID: 77, SenderName: "alice", Action: "buy_prod_1", ActionID: "cb"}, ev)
}

func TestEventFromUnsupported(t *testing.T) {
	_, ok := EventFromUpdate(tele.Update{})
	assert.False(t, ok)
	_, ok = EventFromUpdate(tele.Update{Callback: &tele.Callback{ID: "x"}})
	assert.False(t, ok)
	_, ok = EventFromUpdate(tele.Update{Message: &tele.Message{Text: "hi"}})
	assert.False(t, ok)
}
