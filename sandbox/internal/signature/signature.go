// Package signature computes and checks payment signatures the way the
// payment provider does: a hex HMAC-SHA256, keyed with the account's key
// secret, over two ids joined by "|".
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Order signs a one-time order payment: HMAC(order_id|payment_id).
func Order(secret, orderID, paymentID string) string {
	return sign(secret, orderID+"|"+paymentID)
}

// Subscription signs the authorization payment of a subscription:
// HMAC(payment_id|subscription_id).
func Subscription(secret, paymentID, subscriptionID string) string {
	return sign(secret, paymentID+"|"+subscriptionID)
}

// VerifyOrder reports whether sig is the order signature for the pair.
func VerifyOrder(secret, orderID, paymentID, sig string) bool {
	return equal(Order(secret, orderID, paymentID), sig)
}

// VerifySubscription reports whether sig is the subscription signature for
// the pair.
func VerifySubscription(secret, paymentID, subscriptionID, sig string) bool {
	return equal(Subscription(secret, paymentID, subscriptionID), sig)
}

func sign(secret, payload string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

func equal(want, got string) bool {
	return got != "" && hmac.Equal([]byte(want), []byte(got))
}
