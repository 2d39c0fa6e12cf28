package format

import (
	"errors"
	"fmt"
	"html"
	"strings"
)

// ErrInvalidHTML reports text Telegram would refuse to parse in HTML mode.
var ErrInvalidHTML = errors.New("invalid html")

// telegramTags are the tags accepted by the Bot API HTML parse mode.
var telegramTags = map[string]bool{
	"b": true, "strong": true, "i": true, "em": true, "u": true, "ins": true,
	"s": true, "strike": true, "del": true, "span": true, "tg-spoiler": true,
	"a": true, "tg-emoji": true, "code": true, "pre": true, "blockquote": true,
}

// Escape makes user-provided text safe inside an HTML parse-mode message.
func Escape(text string) string {
	return html.EscapeString(text)
}

// Bold wraps escaped text in <b> tags.
func Bold(text string) string {
	return "<b>" + Escape(text) + "</b>"
}

// Stars renders an amount of Telegram Stars.
func Stars(amount int64) string {
	return fmt.Sprintf("%d ⭐", amount)
}

// Mention renders a user as @username, or the numeric id when no username is set.
func Mention(username string, id int64) string {
	username = strings.TrimPrefix(strings.TrimSpace(username), "@")
	if username == "" {
		return fmt.Sprintf("%d", id)
	}
	return "@" + username
}

// ValidateHTML checks that text only uses supported tags, that tags nest and
// close properly, and that every '<', '>' and '&' outside a tag is escaped.
func ValidateHTML(text string) error {
	var open []string
	for i := 0; i < len(text); {
		switch text[i] {
		case '<':
			end := strings.IndexByte(text[i:], '>')
			if end < 0 {
				return fmt.Errorf("%w: unescaped '<' at %d", ErrInvalidHTML, i)
			}
			body := text[i+1 : i+end]
			closing := strings.HasPrefix(body, "/")
			fields := strings.Fields(strings.TrimPrefix(body, "/"))
			if len(fields) == 0 || !telegramTags[strings.ToLower(fields[0])] {
				return fmt.Errorf("%w: unsupported tag <%s>", ErrInvalidHTML, body)
			}
			name := strings.ToLower(fields[0])
			if closing {
				if len(open) == 0 || open[len(open)-1] != name {
					return fmt.Errorf("%w: unexpected </%s>", ErrInvalidHTML, name)
				}
				open = open[:len(open)-1]
			} else {
				open = append(open, name)
			}
			i += end + 1
		case '>':
			return fmt.Errorf("%w: unescaped '>' at %d", ErrInvalidHTML, i)
		case '&':
			end := strings.IndexByte(text[i:], ';')
			if end < 0 || !validEntity(text[i+1:i+end]) {
				return fmt.Errorf("%w: unescaped '&' at %d", ErrInvalidHTML, i)
			}
			i += end + 1
		default:
			i++
		}
	}
	if len(open) > 0 {
		return fmt.Errorf("%w: unclosed <%s>", ErrInvalidHTML, open[len(open)-1])
	}
	return nil
}

func validEntity(name string) bool {
	switch name {
	case "lt", "gt", "amp", "quot":
		return true
	}
	digits, base := strings.TrimPrefix(name, "#"), "0123456789"
	if digits == name || digits == "" {
		return false
	}
	if d, ok := strings.CutPrefix(digits, "x"); ok {
		digits, base = d, "0123456789abcdefABCDEF"
	}
	return digits != "" && strings.Trim(digits, base) == ""
}
