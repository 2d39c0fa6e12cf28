// Package netutil classifies transport errors seen while talking to the
// Telegram Bot API.
package netutil

import (
	"errors"
	"net"
	"net/url"
	"syscall"
)

// ShouldRetry reports whether a network error is worth retrying. Timeouts
// qualify, so callers must only use it for idempotent work.
func ShouldRetry(err error) bool {
	if err == nil {
		return false
	}
	if NotSent(err) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return true
	}
	return errors.Is(err, syscall.ECONNRESET)
}

// NotSent reports whether err proves the request never reached the server:
// DNS failures and refused or timed out dials.
func NotSent(err error) bool {
	if err == nil {
		return false
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return true
	}
	return errors.Is(err, syscall.ECONNREFUSED)
}
