// Package api is the HTTP client for the document-analysis and payment backends.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/joseph-ayodele/payment-orchestrator/internal/common"
	"github.com/joseph-ayodele/payment-orchestrator/internal/entity"
)

// DocumentAPI is the document-analysis backend.
type DocumentAPI interface {
	FetchDocument(ctx context.Context, id string) (*entity.Document, error)
	Extractions(ctx context.Context, doc entity.Document) (*entity.ExtractionResult, error)
	SubmitFeedback(ctx context.Context, doc entity.Document, feedback entity.ExtractionResult) error
	Preview(ctx context.Context, documentID string, page int) ([]byte, error)
}

// PaymentAPI is the payment backend.
type PaymentAPI interface {
	PaymentProviders(ctx context.Context) ([]entity.PaymentProvider, error)
	CreatePaymentRequest(ctx context.Context, info entity.PaymentInfo) (string, error)
	PaymentRequest(ctx context.Context, id string) (*entity.PaymentRequest, error)
	PDFWithQRCode(ctx context.Context, id string) ([]byte, error)
	QRCodeImage(ctx context.Context, id string) ([]byte, error)
}

// Client implements DocumentAPI and PaymentAPI over JSON REST.
type Client struct {
	documentBaseURL string
	paymentBaseURL  string
	userAgent       string
	hc              *http.Client
	tokens          TokenSource
	logger          *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.hc = hc }
}

// WithTokenSource sets the bearer token source.
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) { c.tokens = ts }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewClient builds a Client from cfg. When client credentials are configured
// a ClientCredentials token source is installed.
func NewClient(cfg common.APIConfig, opts ...Option) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	c := &Client{
		documentBaseURL: strings.TrimRight(cfg.DocumentBaseURL, "/"),
		paymentBaseURL:  strings.TrimRight(cfg.PaymentBaseURL, "/"),
		userAgent:       cfg.UserAgent,
		hc:              &http.Client{Timeout: timeout},
		logger:          slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.tokens == nil && cfg.ClientID != "" && cfg.AuthURL != "" {
		c.tokens = NewClientCredentials(cfg.AuthURL, cfg.ClientID, cfg.ClientSecret, c.hc, c.logger)
	}
	return c
}

var (
	_ DocumentAPI = (*Client)(nil)
	_ PaymentAPI  = (*Client)(nil)
)
