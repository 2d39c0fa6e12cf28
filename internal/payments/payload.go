package payments

import (
	"strings"

	"github.com/m3rciful/starshop/internal/domain"
)

const payloadPrefix = "product_"

// ErrBadPayload reports a correlation payload this shop did not issue.
var ErrBadPayload = domain.NewError(domain.CodeInvalid, "malformed invoice payload")

// EncodePayload builds the correlation payload carried from invoice to payment.
func EncodePayload(productID string) string {
	return payloadPrefix + productID
}

// DecodePayload extracts the product id from a correlation payload.
func DecodePayload(payload string) (string, error) {
	id, ok := strings.CutPrefix(payload, payloadPrefix)
	if !ok || id == "" {
		return "", ErrBadPayload
	}
	return id, nil
}
