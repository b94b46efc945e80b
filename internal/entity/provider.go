package entity

import (
	"github.com/joseph-ayodele/payment-orchestrator/constants"
)

// ProviderColors is the color scheme a provider is rendered with.
type ProviderColors struct {
	Background string `json:"background"`
	Text       string `json:"text"`
}

// PaymentProvider represents a banking app able to receive a payment request.
// Instances are immutable once fetched from the backend.
type PaymentProvider struct {
	ID                         string               `json:"id"`
	Name                       string               `json:"name"`
	IconLocation               string               `json:"iconLocation"`
	Colors                     ProviderColors       `json:"colors"`
	AppSchemeIOS               string               `json:"appSchemeIOS"`
	UniversalLinkIOS           string               `json:"universalLinkIOS"`
	MinAppVersion              string               `json:"minAppVersion,omitempty"`
	GPCSupportedPlatforms      []constants.Platform `json:"gpcSupportedPlatforms"`
	OpenWithSupportedPlatforms []constants.Platform `json:"openWithSupportedPlatforms"`
	Index                      int                  `json:"index"`
}

// SupportsGPC reports whether the provider accepts app-to-app hand-off on p.
func (p PaymentProvider) SupportsGPC(platform constants.Platform) bool {
	return hasPlatform(p.GPCSupportedPlatforms, platform)
}

// SupportsOpenWith reports whether the provider accepts a shared QR PDF on p.
func (p PaymentProvider) SupportsOpenWith(platform constants.Platform) bool {
	return hasPlatform(p.OpenWithSupportedPlatforms, platform)
}

// SupportedOn is true when either hand-off mechanism works on platform.
func (p PaymentProvider) SupportedOn(platform constants.Platform) bool {
	return p.SupportsGPC(platform) || p.SupportsOpenWith(platform)
}

func hasPlatform(list []constants.Platform, platform constants.Platform) bool {
	for _, p := range list {
		if p == platform {
			return true
		}
	}
	return false
}
