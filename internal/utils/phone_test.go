package utils

import (
	"testing"

	"github.com/prefeitura-rio/app-sentinela/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr error
	}{
		{
			name:  "already canonical",
			input: "+5521999887766",
			want:  "+5521999887766",
		},
		{
			name:  "digits without prefix get one",
			input: "5521999887766",
			want:  "+5521999887766",
		},
		{
			name:  "formatting characters stripped",
			input: "+55 (21) 99988-7766",
			want:  "+5521999887766",
		},
		{
			name:  "dots and spaces stripped",
			input: "55.21.99988.7766",
			want:  "+5521999887766",
		},
		{
			name:  "plus only counts at the start",
			input: "55+21999887766",
			want:  "+5521999887766",
		},
		{
			name:    "local format rejected",
			input:   "021999887766",
			wantErr: models.ErrInvalidPhoneFormat,
		},
		{
			name:    "empty input rejected",
			input:   "",
			wantErr: models.ErrInvalidPhoneFormat,
		},
		{
			name:    "no digits rejected",
			input:   "abc-def",
			wantErr: models.ErrInvalidPhoneFormat,
		},
		{
			name:    "bare plus rejected",
			input:   "+",
			wantErr: models.ErrInvalidPhoneFormat,
		},
		{
			name:    "plus then zero kept as-is but zero body",
			input:   "+0219998877",
			want:    "+0219998877",
			wantErr: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizePhone(tt.input)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizePhoneIdempotent(t *testing.T) {
	// Issue and verify both normalize; the second pass must be a no-op
	inputs := []string{"+55 21 99988-7766", "5521999887766", "+14155552671"}
	for _, input := range inputs {
		first, err := NormalizePhone(input)
		assert.NoError(t, err)
		second, err := NormalizePhone(first)
		assert.NoError(t, err)
		assert.Equal(t, first, second)
	}
}

func TestPhoneRegion(t *testing.T) {
	assert.Equal(t, "BR", PhoneRegion("+5521999887766"))
	assert.Equal(t, "US", PhoneRegion("+14155552671"))
	assert.Equal(t, "unknown", PhoneRegion("+999999999999999"))
	assert.Equal(t, "unknown", PhoneRegion("not-a-phone"))
}
