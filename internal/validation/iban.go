package validation

import (
	"errors"
	"strings"
)

var (
	ErrIBANEmpty     = errors.New("iban is empty")
	ErrIBANMalformed = errors.New("iban is malformed")
	ErrIBANChecksum  = errors.New("iban checksum mismatch")
)

// ibanLengths is the SWIFT IBAN registry length per country code.
var ibanLengths = map[string]int{
	"AD": 24, "AE": 23, "AL": 28, "AT": 20, "AZ": 28, "BA": 20, "BE": 16, "BG": 22,
	"BH": 22, "BI": 27, "BR": 29, "BY": 28, "CH": 21, "CR": 22, "CY": 28, "CZ": 24,
	"DE": 22, "DJ": 27, "DK": 18, "DO": 28, "EE": 20, "EG": 29, "ES": 24, "FI": 18,
	"FK": 18, "FO": 18, "FR": 27, "GB": 22, "GE": 22, "GI": 23, "GL": 18, "GR": 27,
	"GT": 28, "HR": 21, "HU": 28, "IE": 22, "IL": 23, "IQ": 23, "IS": 26, "IT": 27,
	"JO": 30, "KW": 30, "KZ": 20, "LB": 28, "LC": 32, "LI": 21, "LT": 20, "LU": 20,
	"LV": 21, "LY": 25, "MC": 27, "MD": 24, "ME": 22, "MK": 19, "MN": 20, "MR": 27,
	"MT": 31, "MU": 30, "NI": 28, "NL": 18, "NO": 15, "OM": 23, "PK": 24, "PL": 28,
	"PS": 29, "PT": 25, "QA": 29, "RO": 24, "RS": 22, "RU": 33, "SA": 24, "SC": 31,
	"SD": 18, "SE": 24, "SI": 19, "SK": 24, "SM": 27, "SO": 23, "ST": 25, "SV": 28,
	"TL": 23, "TN": 24, "TR": 26, "UA": 29, "VA": 22, "VG": 24, "XK": 20, "YE": 30,
}

// NormalizeIBAN strips whitespace and upper-cases the input.
func NormalizeIBAN(text string) string {
	return strings.ToUpper(strings.Join(strings.Fields(text), ""))
}

// ValidateIBAN reports whether text is a structurally valid IBAN.
func ValidateIBAN(text string) bool {
	return CheckIBAN(text) == nil
}

// CheckIBAN returns ErrIBANEmpty, ErrIBANMalformed or ErrIBANChecksum, or nil.
func CheckIBAN(text string) error {
	iban := NormalizeIBAN(text)
	if iban == "" {
		return ErrIBANEmpty
	}
	if len(iban) < 5 {
		return ErrIBANMalformed
	}
	country := iban[:2]
	want, ok := ibanLengths[country]
	if !ok || len(iban) != want {
		return ErrIBANMalformed
	}
	if !isDigit(iban[2]) || !isDigit(iban[3]) {
		return ErrIBANMalformed
	}
	rem, ok := Mod97(iban[4:] + iban[:4])
	if !ok {
		return ErrIBANMalformed
	}
	if rem != 1 {
		return ErrIBANChecksum
	}
	return nil
}

// Mod97 computes the ISO 7064 mod-97-10 remainder of s, mapping letters
// A..Z to 10..35. ok is false if s holds anything but [0-9A-Z].
func Mod97(s string) (rem int, ok bool) {
	if s == "" {
		return 0, false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case isDigit(c):
			rem = (rem*10 + int(c-'0')) % 97
		case c >= 'A' && c <= 'Z':
			rem = (rem*100 + int(c-'A') + 10) % 97
		default:
			return 0, false
		}
	}
	return rem, true
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// IsEmpty reports whether err is the empty-input IBAN failure.
func IsEmpty(err error) bool { return errors.Is(err, ErrIBANEmpty) }

// IsMalformed reports whether err is a length, charset or country failure.
func IsMalformed(err error) bool { return errors.Is(err, ErrIBANMalformed) }
