package validation

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/payment-orchestrator/constants"
)

// maxAmountDigits caps raw minor-unit input; longer input is truncated.
const maxAmountDigits = 7

// maxAmount is the first value that no longer fits in maxAmountDigits minor units.
var maxAmount = decimal.New(1, maxAmountDigits-2)

// ValidateAmount interprets rawDigits as minor units (cents). Input longer than
// seven characters is truncated before parsing. Non-numeric input and values
// that are not strictly positive are rejected.
func ValidateAmount(rawDigits string) (decimal.Decimal, bool) {
	s := strings.TrimSpace(rawDigits)
	if len(s) > maxAmountDigits {
		s = s[:maxAmountDigits]
	}
	if s == "" {
		return decimal.Zero, false
	}
	for i := 0; i < len(s); i++ {
		if !isDigit(s[i]) {
			return decimal.Zero, false
		}
	}
	minor, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	amount := minor.Shift(-2)
	if !amount.IsPositive() {
		return decimal.Zero, false
	}
	return amount, true
}

// ParseAmount accepts the amount shapes seen in the flow: minor-unit digits
// ("1500"), decimal strings ("15.00", "15,00", "1.234,56") and the backend
// format with a currency suffix ("15.00:EUR"). The currency defaults to EUR.
func ParseAmount(raw string) (decimal.Decimal, string, bool) {
	value := strings.TrimSpace(raw)
	currency := constants.DefaultCurrency
	if i := strings.IndexByte(value, ':'); i >= 0 {
		if c := strings.ToUpper(strings.TrimSpace(value[i+1:])); c != "" {
			currency = c
		}
		value = strings.TrimSpace(value[:i])
	}
	if !strings.ContainsAny(value, ".,") {
		amount, ok := ValidateAmount(value)
		return amount, currency, ok
	}
	amount, err := decimal.NewFromString(normalizeDecimal(value))
	if err != nil || !InRange(amount) {
		return decimal.Zero, currency, false
	}
	return amount.Round(2), currency, true
}

// InRange reports whether amount is positive, has at most two fractional
// digits and fits in seven minor-unit digits.
func InRange(amount decimal.Decimal) bool {
	return amount.IsPositive() &&
		amount.Equal(amount.Truncate(2)) &&
		amount.LessThan(maxAmount)
}

// normalizeDecimal treats the last of '.' or ',' as the decimal separator and
// drops the other as a thousands separator.
func normalizeDecimal(s string) string {
	lastDot := strings.LastIndexByte(s, '.')
	lastComma := strings.LastIndexByte(s, ',')
	if lastComma > lastDot {
		s = strings.ReplaceAll(s, ".", "")
		return strings.Replace(s, ",", ".", 1)
	}
	return strings.ReplaceAll(s, ",", "")
}

// ParseExtractedAmount is ParseAmount without the currency.
func ParseExtractedAmount(value string) (decimal.Decimal, bool) {
	amount, _, ok := ParseAmount(value)
	return amount, ok
}
