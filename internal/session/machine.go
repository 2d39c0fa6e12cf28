// Package session implements the admin data-entry state machine on top of a
// core/state.Manager. It is the only code that writes sessions.
package session

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/m3rciful/starshop/core/logger"
	"github.com/m3rciful/starshop/core/state"
	"github.com/m3rciful/starshop/internal/domain"
)

// Conversation states.
const (
	Idle                       = state.StateIdle
	AwaitingProductName        state.State = "awaiting_product_name"
	AwaitingProductDescription state.State = "awaiting_product_description"
	AwaitingProductPrice       state.State = "awaiting_product_price"
	AwaitingProductMaterial    state.State = "awaiting_product_material"
	AwaitingWelcomeText        state.State = "awaiting_welcome_text"
	AwaitingWelcomeMedia       state.State = "awaiting_welcome_media"
)

// Scratch keys collected by the flows.
const (
	KeyName        = "name"
	KeyDescription = "description"
	KeyPrice       = "price"
	KeyWelcomeText = "welcome_text"
)

// Flow names a linear admin conversation.
type Flow string

const (
	FlowAddProduct  Flow = "add_product"
	FlowEditWelcome Flow = "edit_welcome"
)

var flowEntry = map[Flow]state.State{
	FlowAddProduct:  AwaitingProductName,
	FlowEditWelcome: AwaitingWelcomeText,
}

// next maps each non-terminal step to its successor. Terminal steps
// (material, welcome media) are absent: they commit and Reset.
var next = map[state.State]state.State{
	AwaitingProductName:        AwaitingProductDescription,
	AwaitingProductDescription: AwaitingProductPrice,
	AwaitingProductPrice:       AwaitingProductMaterial,
	AwaitingWelcomeText:        AwaitingWelcomeMedia,
}

// ErrStateMismatch is returned when a step is applied to a session that is no
// longer in the state the caller observed.
var ErrStateMismatch = domain.NewError(domain.CodeInvalid, "session is not in the expected state")

// Machine tracks per-user progress through admin flows.
type Machine struct {
	sessions state.Manager
}

// New returns a Machine persisting sessions in m.
func New(m state.Manager) *Machine {
	return &Machine{sessions: m}
}

// Current returns the user's state, Idle when no flow is active.
func (m *Machine) Current(ctx context.Context, userID int64) (state.State, error) {
	s, err := m.sessions.Get(ctx, userID)
	if err != nil {
		return Idle, fmt.Errorf("load session: %w", err)
	}
	return s.Clone().State, nil
}

// Start enters the first step of flow, discarding any scratch this user had.
func (m *Machine) Start(ctx context.Context, userID int64, flow Flow) (state.State, error) {
	entry, ok := flowEntry[flow]
	if !ok {
		return Idle, domain.Invalidf("unknown flow %q", flow)
	}
	if err := m.sessions.Save(ctx, userID, state.Session{State: entry}); err != nil {
		return Idle, fmt.Errorf("save session: %w", err)
	}
	logger.Debug(ctx, logger.CompSession, "session.start",
		slog.String("flow", string(flow)),
		slog.String("state", string(entry)),
	)
	return entry, nil
}

// Advance stores value under key and moves from the given step to the next
// one. It fails with ErrStateMismatch if the user is not in from.
func (m *Machine) Advance(ctx context.Context, userID int64, from state.State, key, value string) (state.State, error) {
	to, ok := next[from]
	if !ok {
		return from, domain.Invalidf("state %q has no successor", from)
	}
	s, err := m.sessions.Get(ctx, userID)
	if err != nil {
		return from, fmt.Errorf("load session: %w", err)
	}
	if s.State != from {
		return s.State, ErrStateMismatch
	}
	s = s.Clone()
	s.Data[key] = value
	s.State = to
	if err := m.sessions.Save(ctx, userID, s); err != nil {
		return from, fmt.Errorf("save session: %w", err)
	}
	logger.Debug(ctx, logger.CompSession, "session.advance",
		slog.String("from", string(from)),
		slog.String("state", string(to)),
	)
	return to, nil
}

// Scratch returns a copy of the values collected so far.
func (m *Machine) Scratch(ctx context.Context, userID int64) (map[string]string, error) {
	s, err := m.sessions.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	return s.Clone().Data, nil
}

// Reset returns the user to Idle and drops scratch.
func (m *Machine) Reset(ctx context.Context, userID int64) error {
	if err := m.sessions.Clear(ctx, userID); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	logger.Debug(ctx, logger.CompSession, "session.reset")
	return nil
}
