// Package callbacks decodes inline button data.
package callbacks

import (
	"strings"

	tele "gopkg.in/telebot.v4"
)

// ParseCallbackData splits Telebot's \f<unique>|<payload> encoding. Data
// without the marker is returned whole as the key.
func ParseCallbackData(cb *tele.Callback) (string, string) {
	if cb == nil {
		return "", ""
	}
	raw := strings.TrimSpace(cb.Data)
	if cb.Unique != "" {
		return cb.Unique, raw
	}
	marked := strings.HasPrefix(raw, "\f")
	if !marked {
		return raw, ""
	}
	parts := strings.SplitN(strings.TrimPrefix(raw, "\f"), "|", 2)
	payload := ""
	if len(parts) == 2 {
		payload = parts[1]
	}
	return strings.TrimSpace(parts[0]), payload
}

// Data returns the button data as originally attached to the button,
// unique and payload joined by an underscore when Telebot encoded them.
func Data(cb *tele.Callback) string {
	key, payload := ParseCallbackData(cb)
	if payload == "" {
		return key
	}
	return key + "_" + payload
}
