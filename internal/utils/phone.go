package utils

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
	"github.com/prefeitura-rio/app-sentinela/internal/models"
)

// NormalizePhone converts free-form phone input to its canonical
// international form. Local-format numbers (leading zero) are rejected
// because the country code cannot be inferred. Pure; both the issue and
// verify paths go through here so a phone always maps to the same key.
func NormalizePhone(raw string) (string, error) {
	var b strings.Builder
	for i, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
			continue
		}
		if r == '+' && i == 0 {
			b.WriteRune(r)
		}
	}

	cleaned := b.String()
	if cleaned == "" {
		return "", models.ErrInvalidPhoneFormat
	}

	if strings.HasPrefix(cleaned, "+") {
		if len(cleaned) == 1 {
			return "", models.ErrInvalidPhoneFormat
		}
		return cleaned, nil
	}

	if cleaned[0] == '0' {
		return "", models.ErrInvalidPhoneFormat
	}

	return "+" + cleaned, nil
}

// PhoneRegion returns the ISO region for a canonical phone number, for use
// in metric labels and logs. Returns "unknown" when the number cannot be
// attributed to a region.
func PhoneRegion(phone string) string {
	num, err := phonenumbers.Parse(phone, "")
	if err != nil {
		return "unknown"
	}
	region := phonenumbers.GetRegionCodeForNumber(num)
	if region == "" || region == "ZZ" {
		return "unknown"
	}
	return region
}
