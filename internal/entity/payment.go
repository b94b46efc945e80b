package entity

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/payment-orchestrator/constants"
)

// PaymentInfo is the value object passed to payment request creation.
type PaymentInfo struct {
	Recipient              string          `json:"recipient"`
	IBAN                   string          `json:"iban"`
	BIC                    string          `json:"bic,omitempty"`
	Amount                 decimal.Decimal `json:"amount"`
	Currency               string          `json:"currency"`
	Purpose                string          `json:"purpose"`
	PaymentProviderID      string          `json:"payment_provider_id"`
	PaymentUniversalLink   string          `json:"payment_universal_link,omitempty"`
	SourceDocumentLocation string          `json:"source_document_location,omitempty"`
}

// AmountString renders the amount in the backend format "15.00:EUR".
func (p PaymentInfo) AmountString() string {
	cur := p.Currency
	if cur == "" {
		cur = constants.DefaultCurrency
	}
	return p.Amount.StringFixed(2) + ":" + cur
}

// PaymentRequest is a server-side payment request. Never mutated locally.
type PaymentRequest struct {
	ID              string          `json:"id"`
	PaymentProvider string          `json:"paymentProvider"`
	Recipient       string          `json:"recipient"`
	IBAN            string          `json:"iban"`
	BIC             string          `json:"bic,omitempty"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
	Purpose         string          `json:"purpose"`
	Status          string          `json:"status,omitempty"`
	RequesterURI    string          `json:"requesterUri,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
}

// Artifact is a QR PDF persisted to transient storage for a share hand-off.
type Artifact struct {
	RequestID   string    `json:"request_id"`
	Path        string    `json:"path"`
	Size        int64     `json:"size"`
	ContentType string    `json:"content_type"`
	CreatedAt   time.Time `json:"created_at"`
}

// PaymentRequestRecord is a locally recorded payment request with its hand-off outcome.
type PaymentRequestRecord struct {
	ID           string                   `json:"id"`
	ProviderID   string                   `json:"provider_id"`
	ProviderName string                   `json:"provider_name"`
	DocumentID   string                   `json:"document_id,omitempty"`
	Recipient    string                   `json:"recipient"`
	IBAN         string                   `json:"iban"`
	Amount       decimal.Decimal          `json:"amount"`
	Currency     string                   `json:"currency"`
	Purpose      string                   `json:"purpose"`
	Outcome      constants.RequestOutcome `json:"outcome"`
	CreatedAt    time.Time                `json:"created_at"`
	UpdatedAt    time.Time                `json:"updated_at"`
}
