// Package chat defines the transport-neutral shapes exchanged between the
// storefront core and the messenger binding.
package chat

import "context"

// Kind classifies an inbound event.
type Kind string

const (
	KindCommand     Kind = "command"
	KindAction      Kind = "action"
	KindMessage     Kind = "message"
	KindPreCheckout Kind = "pre_checkout"
	KindPayment     Kind = "payment"
)

// MediaKind names an uploaded asset type.
type MediaKind string

const (
	MediaPhoto     MediaKind = "photo"
	MediaVideo     MediaKind = "video"
	MediaAnimation MediaKind = "animation"
	MediaDocument  MediaKind = "document"
)

// Media is an opaque platform file reference with its type.
type Media struct {
	Kind MediaKind
	Ref  string
}

// PreCheckout is the platform's request to approve a charge.
type PreCheckout struct {
	QueryID  string
	Payload  string
	Currency string
	Total    int64
}

// Payment is a completed charge notification.
type Payment struct {
	Payload  string
	ChargeID string
	Currency string
	Total    int64
}

// Event is one inbound update. Exactly one of the kind-specific fields is set.
type Event struct {
	Kind       Kind
	SenderID   int64
	SenderName string

	Command string
	Args    string

	Action   string
	ActionID string

	Text  string
	Media *Media

	PreCheckout *PreCheckout
	Payment     *Payment
}

// Button is an inline control carrying an opaque action string.
type Button struct {
	Label string
	Data  string
}

// Keyboard is a grid of inline buttons.
type Keyboard [][]Button

// Message is outbound content. Kind selects how Ref or Text is delivered.
type Message struct {
	Kind     MediaKind
	Text     string
	Ref      string
	HTML     bool
	Keyboard Keyboard
}

// Text builds a plain text message.
func Text(text string) Message {
	return Message{Text: text}
}

// HTML builds an HTML formatted text message.
func HTML(text string) Message {
	return Message{Text: text, HTML: true}
}

// WithKeyboard returns a copy of m carrying kb.
func (m Message) WithKeyboard(kb Keyboard) Message {
	m.Keyboard = kb
	return m
}

// Outbound delivers content to users and acknowledges actions.
type Outbound interface {
	Send(ctx context.Context, to int64, msg Message) error
	AnswerAction(ctx context.Context, actionID, text string, alert bool) error
}
