package utils

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateOTPCodeLength(t *testing.T) {
	for _, length := range []int{4, 6, 8, 10} {
		for i := 0; i < 50; i++ {
			code, err := GenerateOTPCode(length)
			assert.NoError(t, err)
			assert.Len(t, code, length)

			// Leading character is never zero: the draw range starts at
			// 10^(n-1), so the string length always equals the code length
			n, err := strconv.Atoi(code)
			assert.NoError(t, err)
			assert.GreaterOrEqual(t, n, pow10(length-1))
			assert.Less(t, n, pow10(length))
		}
	}
}

func TestGenerateOTPCodeVaries(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 20; i++ {
		code, err := GenerateOTPCode(6)
		assert.NoError(t, err)
		seen[code] = true
	}
	// 20 draws from 900k values colliding into one would mean a broken RNG
	assert.Greater(t, len(seen), 1)
}

func TestGenerateExchangeToken(t *testing.T) {
	token, err := GenerateExchangeToken()
	assert.NoError(t, err)
	assert.Len(t, token, ExchangeTokenLength)

	for _, r := range token {
		isLower := r >= 'a' && r <= 'z'
		isUpper := r >= 'A' && r <= 'Z'
		isDigit := r >= '0' && r <= '9'
		assert.True(t, isLower || isUpper || isDigit, "unexpected character %q", r)
	}

	other, err := GenerateExchangeToken()
	assert.NoError(t, err)
	assert.NotEqual(t, token, other)
}

func pow10(n int) int {
	result := 1
	for i := 0; i < n; i++ {
		result *= 10
	}
	return result
}
