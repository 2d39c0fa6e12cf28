package middleware

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	tghelpers "github.com/m3rciful/starshop/core/telegram/helpers"
)

func offlineBot(t *testing.T) *tele.Bot {
	t.Helper()
	bot, err := tele.NewBot(tele.Settings{Offline: true})
	require.NoError(t, err)
	return bot
}

var sender = &tele.User{ID: 42, Username: "buyer"}

func messageUpdate(id int) tele.Update {
	return tele.Update{ID: id, Message: &tele.Message{Sender: sender, Chat: &tele.Chat{ID: 42}, Text: "hi"}}
}

func paymentUpdate(id int) tele.Update {
	return tele.Update{ID: id, Message: &tele.Message{
		Sender:  sender,
		Chat:    &tele.Chat{ID: 42},
		Payment: &tele.Payment{Currency: "XTR", Total: 100, Payload: "product_1"},
	}}
}

func TestUpdateKind(t *testing.T) {
	assert.Equal(t, KindMessage, UpdateKind(messageUpdate(1)))
	assert.Equal(t, KindPayment, UpdateKind(paymentUpdate(1)))
	assert.Equal(t, KindCallback, UpdateKind(tele.Update{Callback: &tele.Callback{Data: "buy_1"}}))
	assert.Equal(t, KindPreCheckout, UpdateKind(tele.Update{PreCheckoutQuery: &tele.PreCheckoutQuery{ID: "q"}}))
	assert.Equal(t, KindOther, UpdateKind(tele.Update{}))
}

func TestRateLimitNeverDropsPayments(t *testing.T) {
	bot := offlineBot(t)
	clock := time.Unix(0, 0)
	calls := 0
	limited := 0
	mw := RateLimitMiddleware(RateLimitOptions{
		Interval:  time.Minute,
		OnLimited: func(tele.Context) error { limited++; return nil },
		now:       func() time.Time { return clock },
	})
	h := mw(func(tele.Context) error { calls++; return nil })

	require.NoError(t, h(bot.NewContext(messageUpdate(1))))
	require.NoError(t, h(bot.NewContext(messageUpdate(2))))
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, limited)

	require.NoError(t, h(bot.NewContext(paymentUpdate(3))))
	require.NoError(t, h(bot.NewContext(tele.Update{ID: 4, PreCheckoutQuery: &tele.PreCheckoutQuery{ID: "q", Sender: sender}})))
	assert.Equal(t, 3, calls)

	clock = clock.Add(2 * time.Minute)
	require.NoError(t, h(bot.NewContext(messageUpdate(5))))
	assert.Equal(t, 4, calls)
}

func TestRateLimitExclusions(t *testing.T) {
	bot := offlineBot(t)
	calls := 0
	mw := RateLimitMiddleware(RateLimitOptions{
		Interval: time.Hour,
		Exclude:  map[string]struct{}{KindMessage: {}},
	})
	h := mw(func(tele.Context) error { calls++; return nil })
	for i := 0; i < 3; i++ {
		require.NoError(t, h(bot.NewContext(messageUpdate(i))))
	}
	assert.Equal(t, 3, calls)
}

func TestRecoverMiddleware(t *testing.T) {
	bot := offlineBot(t)
	h := RecoverMiddleware(func(tele.Context) error { panic("boom") })
	err := h(bot.NewContext(messageUpdate(1)))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

type observation struct {
	kind, status string
}

type fakeObserver struct {
	mu  sync.Mutex
	obs []observation
}

func (f *fakeObserver) ObserveUpdate(kind, status string, _ time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.obs = append(f.obs, observation{kind, status})
}

func TestMetricsMiddleware(t *testing.T) {
	bot := offlineBot(t)
	obs := &fakeObserver{}
	ok := MetricsMiddleware(obs)(func(tele.Context) error { return nil })
	fail := MetricsMiddleware(obs)(func(tele.Context) error { return errors.New("x") })

	require.NoError(t, ok(bot.NewContext(messageUpdate(1))))
	require.Error(t, fail(bot.NewContext(paymentUpdate(2))))
	assert.Equal(t, []observation{{KindMessage, "ok"}, {KindPayment, "fail"}}, obs.obs)
}

func TestLoggerMiddlewarePreparesCounters(t *testing.T) {
	bot := offlineBot(t)
	var msgs int
	var kb bool
	h := LoggerMiddleware(func(c tele.Context) error {
		ctx := tghelpers.BuildContext(c)
		tghelpers.CountMessage(ctx, false)
		tghelpers.CountMessage(ctx, true)
		msgs, kb = GetCounters(c)
		return nil
	})
	c := bot.NewContext(messageUpdate(9))
	require.NoError(t, h(c))
	assert.Equal(t, 2, msgs)
	assert.True(t, kb)
	assert.NotEmpty(t, c.Get("rid"))
}
