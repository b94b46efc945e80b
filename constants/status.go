package constants

// RequestOutcome is the canonical outcome stored for rows in payment_requests.
type RequestOutcome string

// Stable values (store these exact strings in DB).
const (
	OutcomeCreated         RequestOutcome = "CREATED"          // request exists, no hand-off yet
	OutcomeAppOpened       RequestOutcome = "APP_OPENED"       // deep link handed to the banking app
	OutcomePDFShared       RequestOutcome = "PDF_SHARED"       // QR PDF produced for the share sheet
	OutcomeInstallRequired RequestOutcome = "INSTALL_REQUIRED" // GPC provider, app not installed
)

// OnboardingShareLimit is how many times the share-invoice onboarding sheet
// is shown per provider before the flow skips it.
const OnboardingShareLimit = 3

// DefaultCurrency applied to payment amounts that carry no currency suffix.
const DefaultCurrency = "EUR"
