// Package state stores per-user conversation sessions for bots. It knows
// nothing about the states a bot defines; callers own the transition rules.
package state

import (
	"context"
	"time"
)

// State identifies a finite-state-machine step used in conversations.
type State string

const (
	// StateIdle indicates there is no active conversation with the user.
	StateIdle State = "idle"
)

// Session stores conversation state and scratch values for a user.
type Session struct {
	State     State             `json:"state"`
	Data      map[string]string `json:"data,omitempty"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// Idle returns an empty session in StateIdle.
func Idle() Session {
	return Session{State: StateIdle, Data: map[string]string{}}
}

// Active reports whether the session is in any state other than idle.
func (s Session) Active() bool {
	return s.State != "" && s.State != StateIdle
}

// Clone returns a deep copy so callers never share the Data map.
func (s Session) Clone() Session {
	out := s
	out.Data = make(map[string]string, len(s.Data))
	for k, v := range s.Data {
		out.Data[k] = v
	}
	if out.State == "" {
		out.State = StateIdle
	}
	return out
}

// Manager persists sessions keyed by user id. Get never fails for a missing
// or expired session; it returns Idle instead.
type Manager interface {
	Get(ctx context.Context, userID int64) (Session, error)
	Save(ctx context.Context, userID int64, s Session) error
	Clear(ctx context.Context, userID int64) error
}
