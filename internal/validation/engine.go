// Package validation checks the four payment fields independently of any
// UI error rendering.
package validation

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/payment-orchestrator/internal/common"
	"github.com/joseph-ayodele/payment-orchestrator/internal/entity"
)

// Field names reported in common.ValidationError.
const (
	FieldRecipient = "recipient"
	FieldIBAN      = "iban"
	FieldAmount    = "amount"
	FieldPurpose   = "purpose"
)

// Fields are the user-editable payment fields as entered.
type Fields struct {
	Recipient string
	IBAN      string
	BIC       string
	Amount    string
	Purpose   string
}

// ValidateNonEmpty is false for strings that are empty after trimming.
func ValidateNonEmpty(text string) bool {
	return strings.TrimSpace(text) != ""
}

// NonEmpty is the ValidateNonEmpty rule.
func NonEmpty(fieldName string, value interface{}) *common.ValidationError {
	return common.Required(fieldName, value)
}

// IBAN is the CheckIBAN rule; the cause distinguishes empty from malformed input.
func IBAN(fieldName string, value interface{}) *common.ValidationError {
	s, _ := value.(string)
	if err := CheckIBAN(s); err != nil {
		return &common.ValidationError{Field: fieldName, Value: value, Message: err.Error(), Cause: err}
	}
	return nil
}

// Amount accepts anything ParseAmount accepts.
func Amount(fieldName string, value interface{}) *common.ValidationError {
	s, _ := value.(string)
	if _, _, ok := ParseAmount(s); !ok {
		return &common.ValidationError{Field: fieldName, Value: value, Message: "must be a positive amount"}
	}
	return nil
}

// PositiveDecimal is the rule for already-parsed amounts; it applies the
// same bounds as ParseAmount.
func PositiveDecimal(fieldName string, value interface{}) *common.ValidationError {
	d, ok := value.(decimal.Decimal)
	if !ok || !InRange(d) {
		return &common.ValidationError{Field: fieldName, Value: value, Message: "must be a positive amount"}
	}
	return nil
}

// Validate checks all four fields and, when they pass, returns the PaymentInfo
// they describe. On failure the error is a *common.ValidationFailedError with
// one entry per failing field.
func Validate(f Fields) (entity.PaymentInfo, error) {
	v := common.NewValidator()
	v.Field(FieldRecipient, f.Recipient, NonEmpty)
	v.Field(FieldIBAN, f.IBAN, IBAN)
	v.Field(FieldAmount, f.Amount, Amount)
	v.Field(FieldPurpose, f.Purpose, NonEmpty)
	if err := v.Error(); err != nil {
		return entity.PaymentInfo{}, err
	}

	amount, currency, _ := ParseAmount(f.Amount)
	return entity.PaymentInfo{
		Recipient: strings.TrimSpace(f.Recipient),
		IBAN:      NormalizeIBAN(f.IBAN),
		BIC:       strings.ToUpper(strings.TrimSpace(f.BIC)),
		Amount:    amount,
		Currency:  currency,
		Purpose:   strings.TrimSpace(f.Purpose),
	}, nil
}

// ValidatePaymentInfo re-checks an already-built PaymentInfo.
func ValidatePaymentInfo(info entity.PaymentInfo) error {
	v := common.NewValidator()
	v.Field(FieldRecipient, info.Recipient, NonEmpty)
	v.Field(FieldIBAN, info.IBAN, IBAN)
	v.Field(FieldAmount, info.Amount, PositiveDecimal)
	v.Field(FieldPurpose, info.Purpose, NonEmpty)
	if info.Currency != "" {
		v.Field("currency", info.Currency, common.CurrencyCode)
	}
	return v.Error()
}
