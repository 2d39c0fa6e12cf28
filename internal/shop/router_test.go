package shop

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/starshop/core/state"
	"github.com/m3rciful/starshop/core/telegram/format"
	"github.com/m3rciful/starshop/internal/access"
	"github.com/m3rciful/starshop/internal/chat"
	"github.com/m3rciful/starshop/internal/domain"
	"github.com/m3rciful/starshop/internal/payments"
	"github.com/m3rciful/starshop/internal/session"
	"github.com/m3rciful/starshop/internal/store"
)

const (
	adminID    int64 = 10
	customerID int64 = 20
)

type sent struct {
	to  int64
	msg chat.Message
}

type answered struct {
	id    string
	text  string
	alert bool
}

type fakeOutbound struct {
	mu      sync.Mutex
	sent    []sent
	answers []answered
}

func (f *fakeOutbound) Send(_ context.Context, to int64, msg chat.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sent{to: to, msg: msg})
	return nil
}

func (f *fakeOutbound) AnswerAction(_ context.Context, id, text string, alert bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.answers = append(f.answers, answered{id: id, text: text, alert: alert})
	return nil
}

func (f *fakeOutbound) last(t *testing.T) chat.Message {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.sent)
	return f.sent[len(f.sent)-1].msg
}

type fakePayments struct {
	mu        sync.Mutex
	invoices  []string
	queries   []chat.PreCheckout
	fulfilled []chat.Payment
	missing   bool
	err       error
	panics    bool
}

func (p *fakePayments) Invoice(_ context.Context, _ payments.Buyer, productID string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.invoices = append(p.invoices, productID)
	if p.panics {
		panic("invoice exploded")
	}
	return !p.missing, p.err
}

func (p *fakePayments) PreCheckout(_ context.Context, q chat.PreCheckout) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.queries = append(p.queries, q)
	return nil
}

func (p *fakePayments) Fulfill(_ context.Context, _ payments.Buyer, pay chat.Payment) (payments.Result, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fulfilled = append(p.fulfilled, pay)
	if p.panics {
		panic("fulfill exploded")
	}
	return payments.Result{Outcome: payments.OutcomeFulfilled}, nil
}

type countingErrors struct {
	mu sync.Mutex
	n  int
}

func (c *countingErrors) Error(string) {
	c.mu.Lock()
	c.n++
	c.mu.Unlock()
}

type fixture struct {
	router   *Router
	store    store.Store
	sessions *session.Machine
	out      *fakeOutbound
	pay      *fakePayments
	errs     *countingErrors
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st, err := store.OpenBolt(filepath.Join(t.TempDir(), "shop.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	f := &fixture{
		store:    st,
		sessions: session.New(state.NewMemoryManager(time.Hour)),
		out:      &fakeOutbound{},
		pay:      &fakePayments{},
		errs:     &countingErrors{},
	}
	f.router = NewRouter(Deps{
		Store:    st,
		Sessions: f.sessions,
		Guard:    access.NewGuard([]int64{adminID}),
		Payments: f.pay,
		Out:      f.out,
		Errors:   f.errs,
	})
	return f
}

func (f *fixture) dispatch(t *testing.T, ev chat.Event) {
	t.Helper()
	require.NoError(t, f.router.Dispatch(context.Background(), ev))
}

func (f *fixture) state(t *testing.T, userID int64) state.State {
	t.Helper()
	s, err := f.sessions.Current(context.Background(), userID)
	require.NoError(t, err)
	return s
}

func (f *fixture) products(t *testing.T) []domain.Product {
	t.Helper()
	list, err := f.store.ListProducts(context.Background())
	require.NoError(t, err)
	return list
}

func command(from int64, name string) chat.Event {
	return chat.Event{Kind: chat.KindCommand, SenderID: from, Command: name}
}

func text(from int64, body string) chat.Event {
	return chat.Event{Kind: chat.KindMessage, SenderID: from, Text: body}
}

func media(from int64, kind chat.MediaKind, ref string) chat.Event {
	return chat.Event{Kind: chat.KindMessage, SenderID: from, Media: &chat.Media{Kind: kind, Ref: ref}}
}

func action(from int64, id, data string) chat.Event {
	return chat.Event{Kind: chat.KindAction, SenderID: from, ActionID: id, Action: data}
}

func TestAddProductFlow(t *testing.T) {
	f := newFixture(t)

	f.dispatch(t, action(adminID, "cb1", "admin_add_product"))
	assert.Equal(t, session.AwaitingProductName, f.state(t, adminID))
	assert.Equal(t, textAskName, f.out.last(t).Text)

	f.dispatch(t, text(adminID, "Guide"))
	assert.Equal(t, session.AwaitingProductDescription, f.state(t, adminID))
	f.dispatch(t, text(adminID, "A helpful guide"))
	assert.Equal(t, session.AwaitingProductPrice, f.state(t, adminID))
	f.dispatch(t, text(adminID, "100"))
	assert.Equal(t, session.AwaitingProductMaterial, f.state(t, adminID))
	f.dispatch(t, text(adminID, "Secret content"))

	assert.Equal(t, session.Idle, f.state(t, adminID))
	list := f.products(t)
	require.Len(t, list, 1)
	p := list[0]
	assert.NotEmpty(t, p.ID)
	assert.Equal(t, "Guide", p.Name)
	assert.Equal(t, "A helpful guide", p.Description)
	assert.Equal(t, int64(100), p.Price)
	assert.Equal(t, domain.Material{Kind: domain.MaterialText, Content: "Secret content"}, p.Material)
	assert.Contains(t, f.out.last(t).Text, "Product added")
}

func TestAddProductMediaMaterial(t *testing.T) {
	cases := []struct {
		kind chat.MediaKind
		want domain.MaterialKind
	}{
		{chat.MediaPhoto, domain.MaterialPhoto},
		{chat.MediaVideo, domain.MaterialVideo},
		{chat.MediaDocument, domain.MaterialFile},
		{chat.MediaAnimation, domain.MaterialFile},
	}
	for _, tc := range cases {
		t.Run(string(tc.kind), func(t *testing.T) {
			f := newFixture(t)
			f.dispatch(t, action(adminID, "cb", "admin_add_product"))
			f.dispatch(t, text(adminID, "Pack"))
			f.dispatch(t, text(adminID, "Files"))
			f.dispatch(t, text(adminID, "7"))
			f.dispatch(t, media(adminID, tc.kind, "file-ref"))

			list := f.products(t)
			require.Len(t, list, 1)
			assert.Equal(t, domain.Material{Kind: tc.want, Content: "file-ref"}, list[0].Material)
		})
	}
}

func TestInvalidPriceKeepsState(t *testing.T) {
	f := newFixture(t)
	f.dispatch(t, action(adminID, "cb", "admin_add_product"))
	f.dispatch(t, text(adminID, "Guide"))
	f.dispatch(t, text(adminID, "A helpful guide"))

	for _, raw := range []string{"0", "-5", "abc", "1.5"} {
		f.dispatch(t, text(adminID, raw))
		assert.Equal(t, session.AwaitingProductPrice, f.state(t, adminID), raw)
		assert.Equal(t, textBadPrice, f.out.last(t).Text, raw)
	}
	assert.Empty(t, f.products(t))

	f.dispatch(t, text(adminID, " 25 "))
	assert.Equal(t, session.AwaitingProductMaterial, f.state(t, adminID))
}

func TestNameStepRejectsMedia(t *testing.T) {
	f := newFixture(t)
	f.dispatch(t, action(adminID, "cb", "admin_add_product"))
	f.dispatch(t, media(adminID, chat.MediaPhoto, "x"))
	assert.Equal(t, session.AwaitingProductName, f.state(t, adminID))
	assert.Equal(t, textNeedText, f.out.last(t).Text)
}

func TestUnsupportedMaterialKeepsState(t *testing.T) {
	f := newFixture(t)
	f.dispatch(t, action(adminID, "cb", "admin_add_product"))
	f.dispatch(t, text(adminID, "Guide"))
	f.dispatch(t, text(adminID, "desc"))
	f.dispatch(t, text(adminID, "10"))
	f.dispatch(t, text(adminID, "   "))

	assert.Equal(t, session.AwaitingProductMaterial, f.state(t, adminID))
	assert.Equal(t, textBadMaterial, f.out.last(t).Text)
	assert.Empty(t, f.products(t))
}

func TestNonAdminIsDenied(t *testing.T) {
	f := newFixture(t)
	for _, data := range []string{"admin_add_product", "admin_stats", "admin_delete_x", "admin_edit_start"} {
		f.dispatch(t, action(customerID, "cb-"+data, data))
	}
	assert.Equal(t, session.Idle, f.state(t, customerID))
	assert.Empty(t, f.products(t))
	assert.Empty(t, f.out.sent)
	require.Len(t, f.out.answers, 4)
	for _, a := range f.out.answers {
		assert.Equal(t, textAccessDenied, a.text)
		assert.True(t, a.alert)
	}

	f.dispatch(t, command(customerID, "admin"))
	assert.Equal(t, textAccessDenied, f.out.last(t).Text)
}

func TestAdminCommandShowsMenu(t *testing.T) {
	f := newFixture(t)
	f.dispatch(t, command(adminID, "admin"))
	msg := f.out.last(t)
	assert.Equal(t, textAdminMenu, msg.Text)
	assert.True(t, msg.HTML)
	assert.Len(t, msg.Keyboard, 4)
}

func TestStartShowsCatalog(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.store.PutProduct(ctx, domain.Product{
		ID: "prod_1", Name: "Guide", Price: 100,
		Material: domain.Material{Kind: domain.MaterialText, Content: "s"},
	})
	require.NoError(t, err)

	f.dispatch(t, command(customerID, "start"))
	msg := f.out.last(t)
	assert.Equal(t, domain.DefaultWelcomeText, msg.Text)
	assert.Equal(t, chat.MediaKind(""), msg.Kind)
	require.Len(t, msg.Keyboard, 1)
	assert.Equal(t, chat.Button{Label: "🛍 Guide - 100 ⭐", Data: "buy_prod_1"}, msg.Keyboard[0][0])
}

func TestEditWelcomeSkip(t *testing.T) {
	f := newFixture(t)
	f.dispatch(t, action(adminID, "cb", "admin_edit_start"))
	assert.Equal(t, session.AwaitingWelcomeText, f.state(t, adminID))
	f.dispatch(t, text(adminID, "Hello <b>shoppers</b>"))
	assert.Equal(t, session.AwaitingWelcomeMedia, f.state(t, adminID))

	f.dispatch(t, command(adminID, "skip"))
	assert.Equal(t, session.Idle, f.state(t, adminID))
	assert.Equal(t, textWelcomeUpdated, f.out.last(t).Text)

	w, err := f.store.GetWelcome(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.Welcome{Text: "Hello <b>shoppers</b>"}, w)
}

func TestEditWelcomeRejectsBrokenHTML(t *testing.T) {
	f := newFixture(t)
	f.dispatch(t, action(adminID, "cb", "admin_edit_start"))

	for _, body := range []string{"Prices < 5 stars", "Tom & Jerry", "<b>unclosed"} {
		f.dispatch(t, text(adminID, body))
		assert.Equal(t, session.AwaitingWelcomeText, f.state(t, adminID), body)
		assert.Equal(t, textBadWelcomeHTML, f.out.last(t).Text)
	}

	f.dispatch(t, text(adminID, "Prices &lt; 5 stars"))
	assert.Equal(t, session.AwaitingWelcomeMedia, f.state(t, adminID))
}

func TestFixedTextsAreValidHTML(t *testing.T) {
	for _, text := range []string{
		textAdminMenu, textAskName, textAskMaterial, textAskWelcomeText,
		textAskWelcomeMedia, textBadWelcomeHTML, textEmptyCatalog, textProductList,
		domain.DefaultWelcomeText,
	} {
		assert.NoError(t, format.ValidateHTML(text), text)
	}
}

func TestEditWelcomeWithMedia(t *testing.T) {
	f := newFixture(t)
	f.dispatch(t, action(adminID, "cb", "admin_edit_start"))
	f.dispatch(t, text(adminID, "Hi"))

	f.dispatch(t, media(adminID, chat.MediaDocument, "doc"))
	assert.Equal(t, session.AwaitingWelcomeMedia, f.state(t, adminID))
	assert.Equal(t, textBadWelcomeMedia, f.out.last(t).Text)

	f.dispatch(t, media(adminID, chat.MediaAnimation, "gif-1"))
	assert.Equal(t, session.Idle, f.state(t, adminID))

	f.dispatch(t, command(customerID, "start"))
	msg := f.out.last(t)
	assert.Equal(t, chat.MediaAnimation, msg.Kind)
	assert.Equal(t, "gif-1", msg.Ref)
	assert.Equal(t, "Hi", msg.Text)
}

func TestCancel(t *testing.T) {
	f := newFixture(t)
	f.dispatch(t, command(adminID, "cancel"))
	assert.Equal(t, textNothingToCancel, f.out.last(t).Text)

	f.dispatch(t, action(adminID, "cb", "admin_add_product"))
	f.dispatch(t, text(adminID, "Guide"))
	f.dispatch(t, command(adminID, "cancel"))
	assert.Equal(t, session.Idle, f.state(t, adminID))

	f.dispatch(t, action(adminID, "cb2", "admin_add_product"))
	f.dispatch(t, action(adminID, "cb3", "admin_cancel"))
	assert.Equal(t, session.Idle, f.state(t, adminID))
	assert.Equal(t, answered{id: "cb3", text: textCancelled}, f.out.answers[len(f.out.answers)-1])

	scratch, err := f.sessions.Scratch(context.Background(), adminID)
	require.NoError(t, err)
	assert.Empty(t, scratch)
}

func TestPaymentPreemptsFlow(t *testing.T) {
	f := newFixture(t)
	f.dispatch(t, action(adminID, "cb", "admin_add_product"))
	f.dispatch(t, text(adminID, "Guide"))

	f.dispatch(t, chat.Event{
		Kind:     chat.KindPayment,
		SenderID: adminID,
		Payment:  &chat.Payment{Payload: "product_x", ChargeID: "ch", Currency: "XTR", Total: 5},
	})
	f.dispatch(t, chat.Event{
		Kind:        chat.KindPreCheckout,
		SenderID:    adminID,
		PreCheckout: &chat.PreCheckout{QueryID: "q", Payload: "product_x", Currency: "XTR", Total: 5},
	})

	assert.Len(t, f.pay.fulfilled, 1)
	assert.Len(t, f.pay.queries, 1)
	assert.Equal(t, session.AwaitingProductDescription, f.state(t, adminID))
	assert.Empty(t, f.products(t))
}

func TestPaymentHeldOnUserLockStillRuns(t *testing.T) {
	f := newFixture(t)
	release := f.router.locks.lock(customerID)
	defer release()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = f.router.Dispatch(context.Background(), chat.Event{
			Kind:     chat.KindPayment,
			SenderID: customerID,
			Payment:  &chat.Payment{Payload: "product_x", ChargeID: "c"},
		})
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("payment waited for the conversation lock")
	}
}

func TestHandlerPanicReleasesUserLock(t *testing.T) {
	f := newFixture(t)
	f.pay.panics = true

	err := f.router.Dispatch(context.Background(), action(customerID, "cb", "buy_x"))
	require.ErrorIs(t, err, errHandlerPanic)
	assert.Equal(t, textGenericError, f.out.last(t).Text)
	assert.Equal(t, []answered{{id: "cb"}}, f.out.answers)
	assert.Equal(t, 0, f.router.locks.size())

	err = f.router.Dispatch(context.Background(), chat.Event{
		Kind:     chat.KindPayment,
		SenderID: customerID,
		Payment:  &chat.Payment{Payload: "product_x", ChargeID: "c"},
	})
	require.ErrorIs(t, err, errHandlerPanic)
	assert.Equal(t, textGenericError, f.out.last(t).Text)
	assert.Equal(t, 2, f.errs.n)

	f.pay.mu.Lock()
	f.pay.panics = false
	f.pay.mu.Unlock()

	done := make(chan error, 1)
	go func() {
		done <- f.router.Dispatch(context.Background(), command(customerID, "start"))
	}()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("next event from the same user blocked after a panic")
	}
}

func TestBuyAction(t *testing.T) {
	f := newFixture(t)
	f.dispatch(t, action(customerID, "cb1", "buy_prod_1"))
	assert.Equal(t, []string{"prod_1"}, f.pay.invoices)
	assert.Equal(t, answered{id: "cb1"}, f.out.answers[0])

	f.pay.missing = true
	f.dispatch(t, action(customerID, "cb2", "buy_gone"))
	assert.Equal(t, []string{"prod_1", "gone"}, f.pay.invoices)
	assert.Equal(t, answered{id: "cb2"}, f.out.answers[1])
}

func TestEveryActionAnsweredOnce(t *testing.T) {
	f := newFixture(t)
	_, err := f.store.PutProduct(context.Background(), domain.Product{
		ID: "p1", Name: "Guide", Price: 10,
		Material: domain.Material{Kind: domain.MaterialText, Content: "s"},
	})
	require.NoError(t, err)

	events := []chat.Event{
		action(adminID, "a1", "admin_add_product"),
		action(adminID, "a2", "admin_cancel"),
		action(adminID, "a3", "admin_list_products"),
		action(adminID, "a4", "admin_view_p1"),
		action(adminID, "a5", "admin_view_missing"),
		action(adminID, "a6", "admin_stats"),
		action(adminID, "a7", "admin_back"),
		action(adminID, "a8", "admin_delete_p1"),
		action(customerID, "a9", "buy_p1"),
		action(customerID, "a10", "admin_stats"),
		action(customerID, "a11", "something_else"),
	}
	for _, ev := range events {
		f.dispatch(t, ev)
	}

	f.pay.err = errors.New("gateway down")
	require.Error(t, f.router.Dispatch(context.Background(), action(customerID, "a12", "buy_p1")))

	ids := map[string]int{}
	for _, a := range f.out.answers {
		ids[a.id]++
	}
	assert.Len(t, ids, 12)
	for id, n := range ids {
		assert.Equal(t, 1, n, id)
	}
	assert.Empty(t, f.products(t))
	assert.Equal(t, 1, f.errs.n)
	assert.Equal(t, textGenericError, f.out.last(t).Text)
}

func TestUnknownActionIsSilent(t *testing.T) {
	f := newFixture(t)
	f.dispatch(t, action(customerID, "cb", "buy_"))
	assert.Empty(t, f.out.sent)
	assert.Equal(t, []answered{{id: "cb"}}, f.out.answers)
}

func TestIdleInputIgnored(t *testing.T) {
	f := newFixture(t)
	f.dispatch(t, text(customerID, "hello"))
	f.dispatch(t, command(customerID, "help"))
	assert.Empty(t, f.out.sent)
}

func TestStatsView(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p, err := f.store.PutProduct(ctx, domain.Product{
		ID: "p1", Name: "Guide", Price: 40,
		Material: domain.Material{Kind: domain.MaterialText, Content: "s"},
	})
	require.NoError(t, err)
	for _, charge := range []string{"a", "b"} {
		_, _, err := f.store.RecordOrder(ctx, store.OrderRequest{UserID: customerID, Product: p, PaymentID: charge})
		require.NoError(t, err)
	}

	f.dispatch(t, action(adminID, "cb", "admin_stats"))
	msg := f.out.last(t)
	assert.Contains(t, msg.Text, "Products: 1")
	assert.Contains(t, msg.Text, "Orders: 2")
	assert.Contains(t, msg.Text, "Revenue: 80 ⭐")
}

func TestConcurrentUsersKeepSeparateFlows(t *testing.T) {
	admins := []int64{adminID, 11, 12, 13}
	f := newFixture(t)
	f.router.d.Guard = access.NewGuard(admins)

	var wg sync.WaitGroup
	for _, id := range admins {
		wg.Add(1)
		go func(uid int64) {
			defer wg.Done()
			ctx := context.Background()
			for _, ev := range []chat.Event{
				action(uid, "cb", "admin_add_product"),
				text(uid, "Name"),
				text(uid, "Desc"),
				text(uid, "5"),
				text(uid, "content"),
			} {
				assert.NoError(t, f.router.Dispatch(ctx, ev))
			}
		}(id)
	}
	wg.Wait()

	assert.Len(t, f.products(t), len(admins))
	for _, id := range admins {
		assert.Equal(t, session.Idle, f.state(t, id))
	}
	assert.Zero(t, f.router.locks.size())
}
