package api

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/joseph-ayodele/payment-orchestrator/constants"
	"github.com/joseph-ayodele/payment-orchestrator/internal/common"
	"github.com/joseph-ayodele/payment-orchestrator/internal/entity"
	"github.com/joseph-ayodele/payment-orchestrator/internal/validation"
)

type providerWire struct {
	ID               string                `json:"id"`
	Name             string                `json:"name"`
	IconLocation     string                `json:"iconLocation"`
	Colors           entity.ProviderColors `json:"colors"`
	AppSchemeIOS     string                `json:"appSchemeIOS"`
	UniversalLinkIOS string                `json:"universalLinkIOS"`
	MinAppVersion    struct {
		IOS     string `json:"ios"`
		Android string `json:"android"`
	} `json:"minAppVersion"`
	GPCSupportedPlatforms      []constants.Platform `json:"gpcSupportedPlatforms"`
	OpenWithSupportedPlatforms []constants.Platform `json:"openWithSupportedPlatforms"`
	Index                      *int                 `json:"index"`
}

func (w providerWire) toEntity() entity.PaymentProvider {
	p := entity.PaymentProvider{
		ID:                         w.ID,
		Name:                       w.Name,
		IconLocation:               w.IconLocation,
		Colors:                     w.Colors,
		AppSchemeIOS:               w.AppSchemeIOS,
		UniversalLinkIOS:           w.UniversalLinkIOS,
		MinAppVersion:              w.MinAppVersion.IOS,
		GPCSupportedPlatforms:      w.GPCSupportedPlatforms,
		OpenWithSupportedPlatforms: w.OpenWithSupportedPlatforms,
	}
	if w.Index != nil {
		p.Index = *w.Index
	}
	return p
}

type paymentRequestBody struct {
	SourceDocumentLocation string `json:"sourceDocumentLocation,omitempty"`
	PaymentProvider        string `json:"paymentProvider"`
	Recipient              string `json:"recipient"`
	IBAN                   string `json:"iban"`
	BIC                    string `json:"bic,omitempty"`
	Amount                 string `json:"amount"`
	Purpose                string `json:"purpose"`
}

type paymentRequestWire struct {
	PaymentProvider string `json:"paymentProvider"`
	RequesterURI    string `json:"requesterUri"`
	Recipient       string `json:"recipient"`
	IBAN            string `json:"iban"`
	BIC             string `json:"bic"`
	Amount          string `json:"amount"`
	Purpose         string `json:"purpose"`
	Status          string `json:"status"`
	CreatedAt       string `json:"createdAt"`
}

// PaymentProviders lists every provider the backend knows about.
func (c *Client) PaymentProviders(ctx context.Context) ([]entity.PaymentProvider, error) {
	const op = "paymentProviders"
	resp, err := c.send(ctx, request{op: op, method: http.MethodGet, url: c.paymentBaseURL + "/paymentProviders"})
	if err != nil {
		return nil, err
	}
	var wire []providerWire
	if err := c.decode(op, providersSchema, resp.Body, &wire); err != nil {
		return nil, err
	}
	out := make([]entity.PaymentProvider, 0, len(wire))
	for _, w := range wire {
		out = append(out, w.toEntity())
	}
	common.LoggerFrom(ctx, c.logger).Debug("api.payment_providers.ok", "count", len(out))
	return out, nil
}

// CreatePaymentRequest creates a new server-side payment request and returns its id.
// Each call yields a new id.
func (c *Client) CreatePaymentRequest(ctx context.Context, info entity.PaymentInfo) (string, error) {
	const op = "createPaymentRequest"
	body := paymentRequestBody{
		SourceDocumentLocation: info.SourceDocumentLocation,
		PaymentProvider:        info.PaymentProviderID,
		Recipient:              info.Recipient,
		IBAN:                   info.IBAN,
		BIC:                    info.BIC,
		Amount:                 info.AmountString(),
		Purpose:                info.Purpose,
	}
	resp, err := c.send(ctx, request{op: op, method: http.MethodPost, url: c.paymentBaseURL + "/paymentRequests", body: body})
	if err != nil {
		return "", err
	}
	if id := idFromLocation(resp.Header.Get("Location")); id != "" {
		return id, nil
	}
	var created struct {
		ID string `json:"id"`
	}
	if len(resp.Body) > 0 {
		if err := c.decode(op, createdRequestSchema, resp.Body, &created); err != nil {
			return "", err
		}
	}
	if created.ID == "" {
		return "", common.NewAPIError(op, resp.Status, "", errors.New("response carries no payment request id"))
	}
	return created.ID, nil
}

// PaymentRequest fetches a payment request by id.
func (c *Client) PaymentRequest(ctx context.Context, id string) (*entity.PaymentRequest, error) {
	const op = "paymentRequest"
	resp, err := c.send(ctx, request{op: op, method: http.MethodGet, url: c.paymentRequestURL(id)})
	if err != nil {
		return nil, err
	}
	var w paymentRequestWire
	if err := c.decode(op, paymentRequestSchema, resp.Body, &w); err != nil {
		return nil, err
	}
	amount, currency, ok := validation.ParseAmount(w.Amount)
	if !ok {
		return nil, common.NewAPIError(op, resp.Status, w.Amount, errors.New("invalid amount"))
	}
	pr := &entity.PaymentRequest{
		ID:              id,
		PaymentProvider: w.PaymentProvider,
		Recipient:       w.Recipient,
		IBAN:            w.IBAN,
		BIC:             w.BIC,
		Amount:          amount,
		Currency:        currency,
		Purpose:         w.Purpose,
		Status:          w.Status,
		RequesterURI:    w.RequesterURI,
	}
	if w.CreatedAt != "" {
		if t, err := time.Parse(time.RFC3339, w.CreatedAt); err == nil {
			pr.CreatedAt = t
		}
	}
	return pr, nil
}

// PDFWithQRCode downloads the QR-coded PDF for a payment request.
func (c *Client) PDFWithQRCode(ctx context.Context, id string) ([]byte, error) {
	return c.binary(ctx, "pdfWithQRCode", c.paymentRequestURL(id), constants.MediaTypePDF)
}

// QRCodeImage downloads the QR code image for a payment request.
func (c *Client) QRCodeImage(ctx context.Context, id string) ([]byte, error) {
	return c.binary(ctx, "qrCodeImage", c.paymentRequestURL(id), constants.MediaTypePNG)
}

func (c *Client) binary(ctx context.Context, op, u, accept string) ([]byte, error) {
	resp, err := c.send(ctx, request{op: op, method: http.MethodGet, url: u, accept: accept})
	if err != nil {
		return nil, err
	}
	if len(resp.Body) == 0 {
		return nil, common.NewAPIError(op, resp.Status, "", errors.New("empty body"))
	}
	return resp.Body, nil
}

func (c *Client) paymentRequestURL(id string) string {
	return c.paymentBaseURL + "/paymentRequests/" + url.PathEscape(id)
}

func idFromLocation(loc string) string {
	if loc == "" {
		return ""
	}
	if u, err := url.Parse(loc); err == nil {
		loc = u.Path
	}
	id := path.Base(strings.TrimRight(loc, "/"))
	if id == "." || id == "/" {
		return ""
	}
	return id
}
