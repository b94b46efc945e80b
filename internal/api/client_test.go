package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/payment-orchestrator/constants"
	"github.com/joseph-ayodele/payment-orchestrator/internal/common"
	"github.com/joseph-ayodele/payment-orchestrator/internal/entity"
	"github.com/joseph-ayodele/payment-orchestrator/internal/fakeapi"
)

func newTestClient(t *testing.T, b *fakeapi.Backend, cfg common.APIConfig) *Client {
	t.Helper()
	srv := httptest.NewServer(b.Router())
	t.Cleanup(srv.Close)
	cfg.DocumentBaseURL = srv.URL
	cfg.PaymentBaseURL = srv.URL
	cfg.AuthURL = srv.URL
	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Second
	}
	return NewClient(cfg)
}

func seedBackend() *fakeapi.Backend {
	b := fakeapi.New(nil)
	b.AddProvider(entity.PaymentProvider{
		ID:                    "p1",
		Name:                  "Bank One",
		AppSchemeIOS:          "bankone",
		UniversalLinkIOS:      "bankone",
		GPCSupportedPlatforms: []constants.Platform{constants.PlatformIOS},
		Index:                 2,
	})
	b.AddProvider(entity.PaymentProvider{
		ID:                         "p2",
		Name:                       "Bank Two",
		OpenWithSupportedPlatforms: []constants.Platform{constants.PlatformIOS, constants.PlatformAndroid},
	})
	b.AddDocument(entity.Document{ID: "doc-1", Name: "invoice.pdf", PageCount: 2}, entity.ExtractionResult{
		Extractions: []entity.Extraction{
			{Name: constants.ExtractionIBAN, Entity: "iban", Value: "DE89370400440532013000"},
			{Name: constants.ExtractionAmountToPay, Entity: "amount", Value: "15.00:EUR"},
		},
		Payment: [][]entity.Extraction{{
			{Name: constants.ExtractionIBAN, Entity: "iban", Value: "DE89370400440532013000"},
			{Name: constants.ExtractionPaymentRecipient, Entity: "text", Value: "Dr. Smith"},
		}},
	})
	return b
}

func TestPaymentProviders(t *testing.T) {
	c := newTestClient(t, seedBackend(), common.APIConfig{})
	ps, err := c.PaymentProviders(context.Background())
	if err != nil {
		t.Fatalf("PaymentProviders: %v", err)
	}
	if len(ps) != 2 {
		t.Fatalf("got %d providers, want 2", len(ps))
	}
	if ps[0].Index != 2 || !ps[0].SupportsGPC(constants.PlatformIOS) {
		t.Errorf("provider p1 decoded wrong: %+v", ps[0])
	}
	if ps[1].Index != 0 {
		t.Errorf("absent index should decode as 0, got %d", ps[1].Index)
	}
}

func TestCreateAndFetchPaymentRequest(t *testing.T) {
	for _, inBody := range []bool{false, true} {
		b := seedBackend()
		b.SetReturnIDInBody(inBody)
		c := newTestClient(t, b, common.APIConfig{})
		ctx := context.Background()

		info := entity.PaymentInfo{
			Recipient:         "Dr. Smith",
			IBAN:              "DE89370400440532013000",
			Amount:            decimal.RequireFromString("15"),
			Purpose:           "Invoice 123",
			PaymentProviderID: "p1",
		}
		id, err := c.CreatePaymentRequest(ctx, info)
		if err != nil {
			t.Fatalf("CreatePaymentRequest(idInBody=%v): %v", inBody, err)
		}
		if ids := b.RequestIDs(); len(ids) != 1 || ids[0] != id {
			t.Fatalf("id %q not among created %v", id, ids)
		}

		pr, err := c.PaymentRequest(ctx, id)
		if err != nil {
			t.Fatalf("PaymentRequest: %v", err)
		}
		if !pr.Amount.Equal(decimal.RequireFromString("15")) || pr.Currency != "EUR" {
			t.Errorf("amount = %s %s, want 15 EUR", pr.Amount, pr.Currency)
		}

		pdf, err := c.PDFWithQRCode(ctx, id)
		if err != nil || len(pdf) < 4 || string(pdf[:4]) != "%PDF" {
			t.Errorf("PDFWithQRCode = %q, %v", pdf, err)
		}
		img, err := c.QRCodeImage(ctx, id)
		if err != nil || len(img) < len(fakeapi.PNGSignature) {
			t.Errorf("QRCodeImage = %d bytes, %v", len(img), err)
		}
	}
}

func TestCreateIsNotIdempotent(t *testing.T) {
	c := newTestClient(t, seedBackend(), common.APIConfig{})
	info := entity.PaymentInfo{IBAN: "DE89370400440532013000", Amount: decimal.RequireFromString("1"), PaymentProviderID: "p1"}
	a, err := c.CreatePaymentRequest(context.Background(), info)
	if err != nil {
		t.Fatal(err)
	}
	b, err := c.CreatePaymentRequest(context.Background(), info)
	if err != nil {
		t.Fatal(err)
	}
	if a == b {
		t.Errorf("two creations returned the same id %q", a)
	}
}

func TestDocumentCalls(t *testing.T) {
	b := seedBackend()
	c := newTestClient(t, b, common.APIConfig{})
	ctx := context.Background()

	doc, err := c.FetchDocument(ctx, "doc-1")
	if err != nil {
		t.Fatalf("FetchDocument: %v", err)
	}
	if doc.Links.Extractions == "" || doc.PageCount != 2 {
		t.Errorf("document decoded wrong: %+v", doc)
	}

	res, err := c.Extractions(ctx, *doc)
	if err != nil {
		t.Fatalf("Extractions: %v", err)
	}
	if len(res.Extractions) != 2 || res.Extractions[0].Name != constants.ExtractionAmountToPay {
		t.Errorf("flat extractions not name-sorted: %+v", res.Extractions)
	}
	if !res.HasPaymentGroup() || len(res.Payment[0]) != 2 {
		t.Errorf("payment group = %+v", res.Payment)
	}

	res.Extractions[0].Value = "20.00:EUR"
	if err := c.SubmitFeedback(ctx, *doc, *res); err != nil {
		t.Fatalf("SubmitFeedback: %v", err)
	}
	fb := b.Feedback()
	if len(fb) != 1 || fb[0].Value(constants.ExtractionAmountToPay) != "20.00:EUR" {
		t.Errorf("feedback = %+v", fb)
	}

	img, err := c.Preview(ctx, "doc-1", 1)
	if err != nil || len(img) == 0 {
		t.Errorf("Preview = %d bytes, %v", len(img), err)
	}
	if _, err := c.Preview(ctx, "doc-1", 5); !errors.Is(err, common.ErrAPI) {
		t.Errorf("Preview(out of range) err = %v, want ErrAPI", err)
	}
}

func TestFailuresSurfaceAsAPIError(t *testing.T) {
	b := seedBackend()
	b.FailNext(fakeapi.OpPaymentProviders, http.StatusServiceUnavailable, 1)
	c := newTestClient(t, b, common.APIConfig{})

	_, err := c.PaymentProviders(context.Background())
	var apiErr *common.APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("err = %v, want APIError 503", err)
	}
	if b.Calls(fakeapi.OpPaymentProviders) != 1 {
		t.Errorf("failed call was retried: %d calls", b.Calls(fakeapi.OpPaymentProviders))
	}

	if _, err := c.FetchDocument(context.Background(), "missing"); !errors.Is(err, common.ErrAPI) {
		t.Errorf("FetchDocument(missing) err = %v, want ErrAPI", err)
	}
}

func TestMalformedResponseIsAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", constants.MediaTypeJSON)
		_, _ = w.Write([]byte(`[{"name": "no id"}]`))
	}))
	defer srv.Close()
	c := NewClient(common.APIConfig{PaymentBaseURL: srv.URL, DocumentBaseURL: srv.URL})

	_, err := c.PaymentProviders(context.Background())
	if !errors.Is(err, common.ErrAPI) {
		t.Fatalf("err = %v, want ErrAPI", err)
	}
}

func TestTimeoutIsAPIError(t *testing.T) {
	b := seedBackend()
	b.SetLatency(200 * time.Millisecond)
	c := newTestClient(t, b, common.APIConfig{Timeout: 20 * time.Millisecond})

	_, err := c.PaymentProviders(context.Background())
	var apiErr *common.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want APIError", err)
	}
	if !apiErr.Timeout() {
		t.Errorf("APIError.Timeout() = false for %v", err)
	}
}

func TestClientCredentials(t *testing.T) {
	b := seedBackend()
	b.RequireClient("id", "secret")
	c := newTestClient(t, b, common.APIConfig{ClientID: "id", ClientSecret: "secret"})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := c.PaymentProviders(ctx); err != nil {
			t.Fatalf("PaymentProviders #%d: %v", i, err)
		}
	}
	if got := b.Calls(fakeapi.OpToken); got != 1 {
		t.Errorf("token fetched %d times, want 1 (cached)", got)
	}

	bad := newTestClient(t, b, common.APIConfig{ClientID: "id", ClientSecret: "wrong"})
	if _, err := bad.PaymentProviders(ctx); !errors.Is(err, common.ErrAPI) {
		t.Errorf("bad credentials err = %v, want ErrAPI", err)
	}
}

func TestTokenExpiryRefetches(t *testing.T) {
	b := seedBackend()
	b.RequireClient("id", "secret")
	b.SetTokenTTL(time.Hour)
	srv := httptest.NewServer(b.Router())
	defer srv.Close()

	ts := NewClientCredentials(srv.URL, "id", "secret", nil, nil)
	now := time.Now()
	ts.now = func() time.Time { return now }

	first, err := ts.Token(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	again, _ := ts.Token(context.Background())
	if !first.Equal(again) {
		t.Error("cached token should be returned while valid")
	}

	now = now.Add(2 * time.Hour)
	fresh, err := ts.Token(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if first.Equal(fresh) {
		t.Error("expired token should be replaced")
	}
}

func TestTokenEqualComparesAccessTokenOnly(t *testing.T) {
	a := &entity.Token{AccessToken: "x", ExpiresIn: 10, Scope: "read"}
	b := &entity.Token{AccessToken: "x", ExpiresIn: 3600, Scope: "write"}
	if !a.Equal(b) {
		t.Error("tokens with equal access token should be equal")
	}
	if a.Equal(&entity.Token{AccessToken: "y"}) {
		t.Error("different access tokens should differ")
	}
}

func TestIDFromLocation(t *testing.T) {
	tests := map[string]string{
		"https://pay.example/paymentRequests/abc": "abc",
		"/paymentRequests/abc/":                   "abc",
		"":                                        "",
	}
	for in, want := range tests {
		if got := idFromLocation(in); got != want {
			t.Errorf("idFromLocation(%q) = %q, want %q", in, got, want)
		}
	}
}
