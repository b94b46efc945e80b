package utils

import (
	"strings"
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joseph-ayodele/payment-orchestrator/constants"
	"github.com/joseph-ayodele/payment-orchestrator/internal/entity"
)

func platformList(ps []constants.Platform) []any {
	out := make([]any, 0, len(ps))
	for _, p := range ps {
		out = append(out, string(p))
	}
	return out
}

// ProviderToMap renders a provider for a structpb response.
func ProviderToMap(p entity.PaymentProvider, installed bool) map[string]any {
	return map[string]any{
		"id":                            p.ID,
		"name":                          p.Name,
		"icon_location":                 p.IconLocation,
		"background_color":              p.Colors.Background,
		"text_color":                    p.Colors.Text,
		"app_scheme_ios":                p.AppSchemeIOS,
		"universal_link_ios":            p.UniversalLinkIOS,
		"min_app_version":               p.MinAppVersion,
		"gpc_supported_platforms":       platformList(p.GPCSupportedPlatforms),
		"open_with_supported_platforms": platformList(p.OpenWithSupportedPlatforms),
		"index":                         p.Index,
		"installed":                     installed,
	}
}

// PaymentRequestToMap renders a server-side payment request.
func PaymentRequestToMap(r *entity.PaymentRequest) map[string]any {
	m := map[string]any{
		"id":               r.ID,
		"payment_provider": r.PaymentProvider,
		"recipient":        r.Recipient,
		"iban":             r.IBAN,
		"bic":              r.BIC,
		"amount":           r.Amount.StringFixed(2),
		"currency":         r.Currency,
		"purpose":          r.Purpose,
		"status":           r.Status,
		"requester_uri":    r.RequesterURI,
	}
	if !r.CreatedAt.IsZero() {
		m["created_at"] = r.CreatedAt.UTC().Format(time.RFC3339)
	}
	return m
}

// PaymentInfoToMap renders confirmed payment fields.
func PaymentInfoToMap(info entity.PaymentInfo) map[string]any {
	return map[string]any{
		"recipient": info.Recipient,
		"iban":      info.IBAN,
		"bic":       info.BIC,
		"amount":    info.Amount.StringFixed(2),
		"currency":  info.Currency,
		"purpose":   info.Purpose,
	}
}

func ExtractionsToList(list []entity.Extraction) []any {
	out := make([]any, 0, len(list))
	for _, e := range list {
		item := map[string]any{
			"name":   string(e.Name),
			"entity": e.Entity,
			"value":  e.Value,
		}
		if e.Box != nil {
			item["page"] = e.Box.Page
		}
		out = append(out, item)
	}
	return out
}

func DocumentToMap(d entity.Document) map[string]any {
	m := map[string]any{
		"id":         d.ID,
		"name":       d.Name,
		"page_count": d.PageCount,
		"progress":   d.Progress,
		"location":   d.Links.Document,
	}
	if !d.CreationDate.IsZero() {
		m["created_at"] = d.CreationDate.UTC().Format(time.RFC3339)
	}
	return m
}

// ToStruct converts m, failing on values structpb cannot represent.
func ToStruct(m map[string]any) (*structpb.Struct, error) {
	return structpb.NewStruct(m)
}

// StringField returns the trimmed string at key, or "".
func StringField(s *structpb.Struct, key string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(s.GetFields()[key].GetStringValue())
}

// BoolField returns the bool at key, or false.
func BoolField(s *structpb.Struct, key string) bool {
	if s == nil {
		return false
	}
	return s.GetFields()[key].GetBoolValue()
}

// IntField returns the number at key truncated to int, or def when absent.
func IntField(s *structpb.Struct, key string, def int) int {
	if s == nil {
		return def
	}
	v, ok := s.GetFields()[key]
	if !ok {
		return def
	}
	if _, isNum := v.GetKind().(*structpb.Value_NumberValue); !isNum {
		return def
	}
	return int(v.GetNumberValue())
}
