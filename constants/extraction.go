package constants

// ExtractionName identifies a field produced by the document-analysis backend.
type ExtractionName string

const (
	ExtractionIBAN                 ExtractionName = "iban"
	ExtractionBIC                  ExtractionName = "bic"
	ExtractionAmountToPay          ExtractionName = "amount_to_pay"
	ExtractionPaymentRecipient     ExtractionName = "payment_recipient"
	ExtractionPaymentPurpose       ExtractionName = "payment_purpose"
	ExtractionPaymentState         ExtractionName = "payment_state"
	ExtractionContainsMultipleDocs ExtractionName = "contains_multiple_docs"
)

// PaymentGroup is the compound extraction holding the payment fields.
const PaymentGroup = "payment"

// Literal values the backend uses for the boolean-ish extractions.
const (
	PaymentStatePayable = "payable"
	MultipleDocsTrue    = "true"
)

// Entity names attached to feedback extractions.
const (
	EntityIBAN   = "iban"
	EntityAmount = "amount"
	EntityText   = "text"
)

// Platform is a client platform as listed in a provider's supported platforms.
type Platform string

const (
	PlatformIOS     Platform = "ios"
	PlatformAndroid Platform = "android"
)
