// internal/utils/crypto.go
package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

func generateDigits(length int) (string, error) {
	const digits = "0123456789"
	b := make([]byte, length)

	for i := range b {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(digits))))
		if err != nil {
			return "", err
		}
		b[i] = digits[n.Int64()]
	}

	return string(b), nil
}

// GenerateOrderNumber produces a human-quotable order identifier, e.g.
// ORD-20260830-483920. Uniqueness is enforced by the orders table index;
// the random suffix just makes collisions rare enough to retry on.
func GenerateOrderNumber() (string, error) {
	suffix, err := generateDigits(6)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("ORD-%s-%s", time.Now().Format("20060102"), suffix), nil
}

// GeneratePayoutNumber produces a payout identifier, e.g. PO-20260830-483920.
func GeneratePayoutNumber() (string, error) {
	suffix, err := generateDigits(6)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("PO-%s-%s", time.Now().Format("20060102"), suffix), nil
}
