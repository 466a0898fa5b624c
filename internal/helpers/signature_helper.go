package helpers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
)

// ComputeWebhookSignature is the hex HMAC-SHA256 digest Chapa sends in
// the Chapa-Signature header, keyed by the configured webhook secret.
func ComputeWebhookSignature(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func ValidWebhookSignature(secret, signature string, body []byte) bool {
	expected := ComputeWebhookSignature(secret, body)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// GenerateReceiptSignature signs a payment receipt so it can be checked
// offline without another gateway round trip.
func GenerateReceiptSignature(paymentID, bookingID, userID uuid.UUID, secretKey string) string {
	data := fmt.Sprintf("%s:%s:%s", paymentID.String(), bookingID.String(), userID.String())
	h := hmac.New(sha256.New, []byte(secretKey))
	h.Write([]byte(data))
	return hex.EncodeToString(h.Sum(nil))
}
