// Package keyboard builds Telebot reply markups.
package keyboard

import tele "gopkg.in/telebot.v4"

// InlineBtn describes an inline button. Data is sent back verbatim in the
// callback query; Telebot's unique-prefix encoding is not used.
type InlineBtn struct {
	Text string
	Data string
}

// maxCallbackData is the Bot API limit for callback_data in bytes.
const maxCallbackData = 64

// RemoveKeyboard returns a markup that hides the keyboard.
func RemoveKeyboard() *tele.ReplyMarkup {
	return &tele.ReplyMarkup{RemoveKeyboard: true}
}

// InlineButtonsRows builds an inline keyboard from rows of InlineBtn. Empty
// rows are dropped and nil is returned when no button remains.
func InlineButtonsRows(rows ...[]InlineBtn) *tele.ReplyMarkup {
	inline := make([][]tele.InlineButton, 0, len(rows))
	for _, row := range rows {
		r := make([]tele.InlineButton, 0, len(row))
		for _, btn := range row {
			r = append(r, tele.InlineButton{Text: btn.Text, Data: btn.Data})
		}
		if len(r) > 0 {
			inline = append(inline, r)
		}
	}
	if len(inline) == 0 {
		return nil
	}
	return &tele.ReplyMarkup{InlineKeyboard: inline}
}

// ValidData reports whether data fits into a callback query.
func ValidData(data string) bool {
	return data != "" && len(data) <= maxCallbackData
}

// HasKeyboard reports whether any send option carries reply markup.
func HasKeyboard(opts ...any) bool {
	for _, o := range opts {
		switch v := o.(type) {
		case *tele.SendOptions:
			if v != nil && v.ReplyMarkup != nil {
				return true
			}
		case *tele.ReplyMarkup:
			if v != nil {
				return true
			}
		}
	}
	return false
}
