package payments

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"math"
)

// Sign computes the gateway callback signature: hex-encoded HMAC-SHA256
// over "orderID|paymentID" with the platform's gateway secret.
func Sign(secret, orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks a callback signature in constant time. The compare
// must not leak where a mismatch occurs, so the supplied hex is decoded and
// matched with hmac.Equal rather than string equality.
func VerifySignature(secret, orderID, paymentID, signature string) bool {
	if secret == "" || signature == "" {
		return false
	}
	got, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write([]byte(orderID + "|" + paymentID))
	return hmac.Equal(got, mac.Sum(nil))
}

// MinorUnits converts a decimal amount to the gateway's minor currency
// units (e.g. INR paise).
func MinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}
