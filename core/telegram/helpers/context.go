package helpers

import (
	"context"
	"sync/atomic"

	"github.com/m3rciful/starshop/core/logger"

	tele "gopkg.in/telebot.v4"
)

const contextKey = "logger_ctx"

// StoreContext attaches reusable context to tele.Context for downstream helpers.
func StoreContext(c tele.Context, ctx context.Context) {
	if c == nil || ctx == nil {
		return
	}
	c.Set(contextKey, ctx)
}

// ContextFrom returns the context stored by StoreContext, if any.
func ContextFrom(c tele.Context) (context.Context, bool) {
	if c == nil {
		return nil, false
	}
	if v := c.Get(contextKey); v != nil {
		if ctx, ok := v.(context.Context); ok {
			return ctx, true
		}
	}
	return nil, false
}

// BuildContext constructs a context.Context from tele.Context, enriching it
// with RID, update/user/chat metadata and reply counters.
func BuildContext(c tele.Context) context.Context {
	if cached, ok := ContextFrom(c); ok {
		return cached
	}

	upd := c.Update()
	var chatID, userID int64
	if chat := c.Chat(); chat != nil {
		chatID = chat.ID
	}
	if user := c.Sender(); user != nil {
		userID = user.ID
	}

	rid, _ := c.Get("rid").(string)
	if rid == "" {
		rid = logger.BuildRID(upd.ID, chatID, userID)
	}

	ctx := context.Background()
	ctx = logger.WithRID(ctx, rid)
	ctx = logger.WithUpdateMeta(ctx, upd.ID, userID, chatID)
	ctx = WithCounters(ctx)
	StoreContext(c, ctx)
	return ctx
}

// WithHandler enriches stored context with handler metadata for downstream logs.
func WithHandler(c tele.Context, handler string) context.Context {
	ctx := BuildContext(c)
	if handler == "" {
		return ctx
	}
	ctx = logger.WithHandler(ctx, handler)
	StoreContext(c, ctx)
	return ctx
}

// Counters tracks the replies produced while handling one update.
type Counters struct {
	messages atomic.Int64
	keyboard atomic.Bool
}

type countersKey struct{}

// WithCounters attaches a fresh Counters to ctx unless one is present.
func WithCounters(ctx context.Context) context.Context {
	if CountersFrom(ctx) != nil {
		return ctx
	}
	return context.WithValue(ctx, countersKey{}, &Counters{})
}

// CountersFrom returns the counters attached to ctx or nil.
func CountersFrom(ctx context.Context) *Counters {
	if ctx == nil {
		return nil
	}
	c, _ := ctx.Value(countersKey{}).(*Counters)
	return c
}

// CountMessage records one delivered message. It is a no-op without counters.
func CountMessage(ctx context.Context, hasKeyboard bool) {
	c := CountersFrom(ctx)
	if c == nil {
		return
	}
	c.messages.Add(1)
	if hasKeyboard {
		c.keyboard.Store(true)
	}
}

// Snapshot returns the message count and whether any reply had a keyboard.
func (c *Counters) Snapshot() (int, bool) {
	if c == nil {
		return 0, false
	}
	return int(c.messages.Load()), c.keyboard.Load()
}
