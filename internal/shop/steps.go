package shop

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"github.com/m3rciful/starshop/core/logger"
	"github.com/m3rciful/starshop/core/state"
	"github.com/m3rciful/starshop/core/telegram/format"
	"github.com/m3rciful/starshop/internal/chat"
	"github.com/m3rciful/starshop/internal/domain"
	"github.com/m3rciful/starshop/internal/session"
)

const skipCommand = "/skip"

// inputText returns the text an event carries as step input. Commands typed
// during a flow are taken verbatim, so "/skip" reaches the welcome step.
func inputText(ev chat.Event) string {
	if ev.Kind == chat.KindCommand {
		text := "/" + ev.Command
		if ev.Args != "" {
			text += " " + ev.Args
		}
		return text
	}
	return ev.Text
}

func (r *Router) handleStep(ctx context.Context, ev chat.Event, current state.State) error {
	step, ok := r.steps[current]
	if !ok {
		logger.Warn(ctx, logger.CompShop, "step.unknown",
			slog.String("status", "reset"),
			slog.String("state", string(current)),
		)
		return r.d.Sessions.Reset(ctx, ev.SenderID)
	}
	if !r.authorized(ctx, ev) {
		if err := r.d.Sessions.Reset(ctx, ev.SenderID); err != nil {
			return err
		}
		return r.send(ctx, ev.SenderID, chat.Text(textAccessDenied))
	}
	return step(ctx, ev)
}

// textStep advances from the given state with the trimmed text input, or
// re-prompts when the input carries no text.
func (r *Router) textStep(ctx context.Context, ev chat.Event, from state.State, key, nextPrompt string) error {
	text := strings.TrimSpace(inputText(ev))
	if ev.Media != nil || text == "" {
		return r.send(ctx, ev.SenderID, prompt(textNeedText))
	}
	if _, err := r.d.Sessions.Advance(ctx, ev.SenderID, from, key, text); err != nil {
		return err
	}
	return r.send(ctx, ev.SenderID, prompt(nextPrompt))
}

func (r *Router) stepProductName(ctx context.Context, ev chat.Event) error {
	return r.textStep(ctx, ev, session.AwaitingProductName, session.KeyName, textAskDescription)
}

func (r *Router) stepProductDescription(ctx context.Context, ev chat.Event) error {
	return r.textStep(ctx, ev, session.AwaitingProductDescription, session.KeyDescription, textAskPrice)
}

func (r *Router) stepProductPrice(ctx context.Context, ev chat.Event) error {
	price, err := domain.ParsePrice(inputText(ev))
	if ev.Media != nil || err != nil {
		logger.Debug(ctx, logger.CompShop, "step.price.invalid", slog.String("status", "retry"))
		return r.send(ctx, ev.SenderID, prompt(textBadPrice))
	}
	if _, err := r.d.Sessions.Advance(ctx, ev.SenderID, session.AwaitingProductPrice, session.KeyPrice, strconv.FormatInt(price, 10)); err != nil {
		return err
	}
	return r.send(ctx, ev.SenderID, prompt(textAskMaterial))
}

// materialFrom maps the final add-product input to a deliverable.
// Animations are delivered as files.
func materialFrom(ev chat.Event) (domain.Material, bool) {
	if ev.Media == nil {
		text := inputText(ev)
		if strings.TrimSpace(text) == "" {
			return domain.Material{}, false
		}
		return domain.Material{Kind: domain.MaterialText, Content: text}, true
	}
	switch ev.Media.Kind {
	case chat.MediaPhoto:
		return domain.Material{Kind: domain.MaterialPhoto, Content: ev.Media.Ref}, true
	case chat.MediaVideo:
		return domain.Material{Kind: domain.MaterialVideo, Content: ev.Media.Ref}, true
	case chat.MediaDocument, chat.MediaAnimation:
		return domain.Material{Kind: domain.MaterialFile, Content: ev.Media.Ref}, true
	}
	return domain.Material{}, false
}

func (r *Router) stepProductMaterial(ctx context.Context, ev chat.Event) error {
	material, ok := materialFrom(ev)
	if !ok {
		return r.send(ctx, ev.SenderID, prompt(textBadMaterial))
	}
	scratch, err := r.d.Sessions.Scratch(ctx, ev.SenderID)
	if err != nil {
		return err
	}
	price, err := domain.ParsePrice(scratch[session.KeyPrice])
	if err != nil {
		return err
	}
	p, err := r.d.Store.PutProduct(ctx, domain.Product{
		Name:        scratch[session.KeyName],
		Description: scratch[session.KeyDescription],
		Price:       price,
		Material:    material,
	})
	if err != nil {
		return err
	}
	if err := r.d.Sessions.Reset(ctx, ev.SenderID); err != nil {
		return err
	}
	logger.Info(ctx, logger.CompShop, "product.added",
		slog.String("product_id", p.ID),
		slog.Int64("price", p.Price),
		slog.String("material", string(material.Kind)),
	)
	return r.send(ctx, ev.SenderID, productAddedView(p))
}

func (r *Router) stepWelcomeText(ctx context.Context, ev chat.Event) error {
	// The text is sent to every buyer in HTML mode.
	if ev.Media == nil {
		if err := format.ValidateHTML(strings.TrimSpace(inputText(ev))); err != nil {
			logger.Debug(ctx, logger.CompShop, "step.welcome.invalid_html",
				slog.String("status", "retry"),
				logger.Err(err),
			)
			return r.send(ctx, ev.SenderID, prompt(textBadWelcomeHTML))
		}
	}
	return r.textStep(ctx, ev, session.AwaitingWelcomeText, session.KeyWelcomeText, textAskWelcomeMedia)
}

func welcomeMediaFrom(m *chat.Media) (*domain.WelcomeMedia, bool) {
	if m == nil {
		return nil, false
	}
	switch m.Kind {
	case chat.MediaPhoto:
		return &domain.WelcomeMedia{Kind: domain.WelcomePhoto, Ref: m.Ref}, true
	case chat.MediaVideo:
		return &domain.WelcomeMedia{Kind: domain.WelcomeVideo, Ref: m.Ref}, true
	case chat.MediaAnimation:
		return &domain.WelcomeMedia{Kind: domain.WelcomeAnimation, Ref: m.Ref}, true
	}
	return nil, false
}

func (r *Router) stepWelcomeMedia(ctx context.Context, ev chat.Event) error {
	w := domain.Welcome{}
	done := textWelcomeUpdated
	if media, ok := welcomeMediaFrom(ev.Media); ok {
		w.Media = media
		done = textWelcomeWithMedia
	} else if ev.Media != nil || strings.TrimSpace(inputText(ev)) != skipCommand {
		return r.send(ctx, ev.SenderID, prompt(textBadWelcomeMedia))
	}

	scratch, err := r.d.Sessions.Scratch(ctx, ev.SenderID)
	if err != nil {
		return err
	}
	w.Text = scratch[session.KeyWelcomeText]
	if err := r.d.Store.SetWelcome(ctx, w); err != nil {
		return err
	}
	if err := r.d.Sessions.Reset(ctx, ev.SenderID); err != nil {
		return err
	}
	logger.Info(ctx, logger.CompShop, "welcome.updated", slog.Bool("media", w.Media != nil))
	return r.send(ctx, ev.SenderID, chat.Text(done).WithKeyboard(adminKeyboard()))
}
