package fakeapi

import (
	"github.com/joseph-ayodele/payment-orchestrator/constants"
	"github.com/joseph-ayodele/payment-orchestrator/internal/entity"
)

// DemoDocumentID is the analysed invoice registered by Seed.
const DemoDocumentID = "demo-invoice"

// Seed registers a small provider catalogue and one analysed invoice, enough
// to walk every hand-off branch by hand.
func Seed(b *Backend) {
	ios := []constants.Platform{constants.PlatformIOS}
	android := []constants.Platform{constants.PlatformAndroid}
	both := []constants.Platform{constants.PlatformIOS, constants.PlatformAndroid}

	b.SetProviders([]entity.PaymentProvider{
		{
			ID: "b09ef70a-490f-11eb-952e-9bc6f4646c57", Name: "Gini-Test-Payment-Provider",
			Colors:       entity.ProviderColors{Background: "#FFFFFF", Text: "#009EDF"},
			AppSchemeIOS: "ginipay-bank", UniversalLinkIOS: "ginipay-bank",
			GPCSupportedPlatforms: both, OpenWithSupportedPlatforms: both, Index: 0,
		},
		{
			ID: "share-only", Name: "Share Bank",
			Colors:                     entity.ProviderColors{Background: "#003366", Text: "#FFFFFF"},
			AppSchemeIOS:               "sharebank",
			OpenWithSupportedPlatforms: ios, Index: 1,
		},
		{
			ID: "android-gpc", Name: "Droid Bank",
			Colors:                entity.ProviderColors{Background: "#3DDC84", Text: "#000000"},
			AppSchemeIOS:          "droidbank",
			GPCSupportedPlatforms: android, OpenWithSupportedPlatforms: ios, Index: 2,
		},
	})

	b.AddDocument(entity.Document{ID: DemoDocumentID, Name: "invoice.pdf", PageCount: 1}, entity.ExtractionResult{
		Extractions: []entity.Extraction{
			{Name: constants.ExtractionPaymentState, Entity: constants.EntityText, Value: constants.PaymentStatePayable},
		},
		Payment: [][]entity.Extraction{{
			{Name: constants.ExtractionIBAN, Entity: constants.EntityIBAN, Value: "DE89370400440532013000"},
			{Name: constants.ExtractionAmountToPay, Entity: constants.EntityAmount, Value: "1500"},
			{Name: constants.ExtractionPaymentRecipient, Entity: constants.EntityText, Value: "Dr. Smith"},
			{Name: constants.ExtractionPaymentPurpose, Entity: constants.EntityText, Value: "Invoice 123"},
		}},
	})
}
