package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const tokenAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// ExchangeTokenLength is the length of the post-verification exchange token
const ExchangeTokenLength = 64

// GenerateOTPCode generates a uniform numeric code of the given length,
// drawn from [10^(n-1), 10^n - 1]
func GenerateOTPCode(length int) (string, error) {
	low := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(length-1)), nil)
	high := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(length)), nil)

	n, err := rand.Int(rand.Reader, new(big.Int).Sub(high, low))
	if err != nil {
		return "", fmt.Errorf("failed to draw OTP code: %w", err)
	}

	return n.Add(n, low).String(), nil
}

// GenerateExchangeToken generates a random alphanumeric exchange token,
// each character drawn uniformly from the 62-symbol alphabet
func GenerateExchangeToken() (string, error) {
	b := make([]byte, ExchangeTokenLength)
	max := big.NewInt(int64(len(tokenAlphabet)))
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to draw token character: %w", err)
		}
		b[i] = tokenAlphabet[n.Int64()]
	}
	return string(b), nil
}
