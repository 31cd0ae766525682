// Package phone normalizes subscriber numbers to a canonical +<cc><number>
// form before they are used as part of an account's natural key.
package phone

import (
	"strings"
	"unicode"

	dErrors "greengate/pkg/domain-errors"
)

// DefaultCountryCode is applied to national-format numbers (leading zero).
const DefaultCountryCode = "94"

// Normalize canonicalizes a mobile number. Accepted inputs:
//
//	+94771234567  -> +94771234567
//	94771234567   -> +94771234567
//	0771234567    -> +94771234567
//
// Separators (spaces, dashes, dots, parentheses) are stripped first.
func Normalize(raw string) (string, error) {
	return NormalizeWithCountry(raw, DefaultCountryCode)
}

// NormalizeWithCountry is Normalize with an explicit country calling code.
func NormalizeWithCountry(raw, countryCode string) (string, error) {
	cleaned := strip(raw)
	if cleaned == "" {
		return "", dErrors.New(dErrors.CodeValidation, "mobile number is required")
	}

	hasPlus := strings.HasPrefix(cleaned, "+")
	digits := strings.TrimPrefix(cleaned, "+")
	if digits == "" || !isDigits(digits) {
		return "", dErrors.New(dErrors.CodeValidation, "mobile number contains invalid characters")
	}

	switch {
	case hasPlus:
		// Already international.
	case strings.HasPrefix(digits, countryCode):
		// International without the plus.
	case strings.HasPrefix(digits, "0"):
		digits = countryCode + digits[1:]
	default:
		return "", dErrors.New(dErrors.CodeValidation, "mobile number must be international or start with 0")
	}

	if len(digits) < 10 || len(digits) > 15 {
		return "", dErrors.New(dErrors.CodeValidation, "mobile number length is out of range")
	}
	return "+" + digits, nil
}

func strip(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case ' ', '-', '.', '(', ')':
			continue
		}
		b.WriteRune(r)
	}
	return strings.TrimSpace(b.String())
}

func isDigits(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
