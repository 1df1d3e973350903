package order

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const (
	orderNumberLen      = 9
	orderNumberAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
)

// NewOrderNumber draws a random lowercase alphanumeric order number.
func NewOrderNumber() (string, error) {
	max := big.NewInt(int64(len(orderNumberAlphabet)))
	b := make([]byte, orderNumberLen)
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("order number: %w", err)
		}
		b[i] = orderNumberAlphabet[n.Int64()]
	}
	return string(b), nil
}
