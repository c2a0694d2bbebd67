package request

import (
	"crypto/rand"
	"math/big"
	mrand "math/rand"
)

const (
	// RequestIDHeader carries the per-request correlation id.
	RequestIDHeader = "X-Request-ID"
	// RequestIDLength is the fixed length of generated correlation ids.
	RequestIDLength = 12

	requestIDAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
)

var alphabetSize = big.NewInt(int64(len(requestIDAlphabet)))

// NewRequestID returns a fresh random alphanumeric correlation id.
func NewRequestID() string {
	b := make([]byte, RequestIDLength)
	for i := range b {
		n, err := rand.Int(rand.Reader, alphabetSize)
		if err != nil {
			b[i] = requestIDAlphabet[mrand.Intn(len(requestIDAlphabet))]
			continue
		}
		b[i] = requestIDAlphabet[n.Int64()]
	}
	return string(b)
}
