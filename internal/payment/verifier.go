// Package payment verifies gateway payment assertions before a hold
// may become a confirmed booking.  Verification is purely local: the
// gateway signs the (order id, payment id) pair with a shared secret
// during its client-side checkout flow, and this package recomputes
// that signature.  No network call is involved.
package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Verifier checks gateway signatures with a shared secret.
type Verifier struct {
	secret []byte
}

// NewVerifier returns a Verifier bound to the gateway shared secret.
func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Signature returns the hex HMAC-SHA256 of "orderID|paymentID".
// Exposed so tests and staff tooling can produce valid signatures.
func (v *Verifier) Signature(gatewayOrderID, gatewayPaymentID string) string {
	mac := hmac.New(sha256.New, v.secret)
	mac.Write([]byte(gatewayOrderID + "|" + gatewayPaymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify reports whether the provided signature matches the expected
// HMAC for the (order id, payment id) pair.  The comparison is
// constant time.
func (v *Verifier) Verify(gatewayOrderID, gatewayPaymentID, signature string) bool {
	expected := v.Signature(gatewayOrderID, gatewayPaymentID)
	return hmac.Equal([]byte(expected), []byte(signature))
}
