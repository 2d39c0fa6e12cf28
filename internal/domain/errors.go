package domain

import (
	"errors"
	"fmt"
)

// ErrorCode classifies a failure independently of the layer that produced it.
type ErrorCode string

const (
	CodeNotFound        ErrorCode = "NOT_FOUND"
	CodeInvalid         ErrorCode = "INVALID"
	CodeUnauthorized    ErrorCode = "UNAUTHORIZED"
	CodeFulfillmentRace ErrorCode = "FULFILLMENT_RACE"
	CodeNotifyFailed    ErrorCode = "NOTIFY_FAILED"
	CodeInternal        ErrorCode = "INTERNAL"
)

// Error is a coded domain error.
type Error struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches any domain error carrying the same code, so wrapped variants
// still satisfy errors.Is against the sentinels below.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}
	return e.Code == t.Code
}

// ErrorCode exposes the code to log helpers that do not import this package.
func (e *Error) ErrorCode() string {
	if e == nil {
		return ""
	}
	return string(e.Code)
}

// NewError builds a domain error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WrapError wraps err with a domain classification.
func WrapError(code ErrorCode, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

var (
	ErrNotFound        = NewError(CodeNotFound, "not found")
	ErrInvalidArgument = NewError(CodeInvalid, "invalid argument")
	ErrUnauthorized    = NewError(CodeUnauthorized, "unauthorized")
	ErrFulfillmentRace = NewError(CodeFulfillmentRace, "paid product no longer exists")
	ErrNotifyFailed    = NewError(CodeNotifyFailed, "admin notification failed")
)

// NotFoundf builds a NOT_FOUND error with a formatted message.
func NotFoundf(format string, args ...any) *Error {
	return NewError(CodeNotFound, fmt.Sprintf(format, args...))
}

// Invalidf builds an INVALID error with a formatted message.
func Invalidf(format string, args ...any) *Error {
	return NewError(CodeInvalid, fmt.Sprintf(format, args...))
}

// HasCode reports whether err carries a domain error with the given code.
func HasCode(err error, code ErrorCode) bool {
	var dErr *Error
	if errors.As(err, &dErr) {
		return dErr.Code == code
	}
	return false
}
