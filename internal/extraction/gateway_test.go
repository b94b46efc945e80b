package extraction

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/payment-orchestrator/constants"
	"github.com/joseph-ayodele/payment-orchestrator/internal/api"
	"github.com/joseph-ayodele/payment-orchestrator/internal/common"
	"github.com/joseph-ayodele/payment-orchestrator/internal/entity"
	"github.com/joseph-ayodele/payment-orchestrator/internal/fakeapi"
	"github.com/joseph-ayodele/payment-orchestrator/internal/validation"
)

func sampleExtractions() []entity.Extraction {
	return []entity.Extraction{
		{Name: constants.ExtractionIBAN, Entity: "iban", Value: "DE89370400440532013000"},
		{Name: constants.ExtractionAmountToPay, Entity: "amount", Value: "1500"},
		{Name: constants.ExtractionPaymentRecipient, Entity: "text", Value: "Dr. Smith"},
		{Name: constants.ExtractionPaymentPurpose, Entity: "text", Value: "Invoice 123"},
	}
}

func newGateway(t *testing.T, b *fakeapi.Backend) *Gateway {
	t.Helper()
	srv := httptest.NewServer(b.Router())
	t.Cleanup(srv.Close)
	c := api.NewClient(common.APIConfig{DocumentBaseURL: srv.URL, PaymentBaseURL: srv.URL, Timeout: 5 * time.Second})
	return NewGateway(c, nil)
}

func TestPaymentInfoFromExtractions(t *testing.T) {
	info := PaymentInfoFromExtractions(sampleExtractions())
	if !info.Amount.Equal(decimal.RequireFromString("15.00")) {
		t.Errorf("amount = %s, want 15.00", info.Amount)
	}
	if !validation.ValidateIBAN(info.IBAN) {
		t.Errorf("IBAN %q should validate", info.IBAN)
	}
	if info.Recipient != "Dr. Smith" || info.Purpose != "Invoice 123" || info.Currency != "EUR" {
		t.Errorf("info = %+v", info)
	}
}

func TestExtractFieldFirstMatchWins(t *testing.T) {
	list := []entity.Extraction{
		{Name: constants.ExtractionIBAN, Value: "first"},
		{Name: constants.ExtractionIBAN, Value: "second"},
	}
	if v, ok := ExtractField(list, constants.ExtractionIBAN); !ok || v != "first" {
		t.Errorf("ExtractField = %q, %v", v, ok)
	}
	if _, ok := ExtractField(list, constants.ExtractionBIC); ok {
		t.Error("missing field should not be found")
	}
}

func TestPayableAndMultipleInvoices(t *testing.T) {
	list := []entity.Extraction{
		{Name: constants.ExtractionPaymentState, Value: "Payable"},
		{Name: constants.ExtractionContainsMultipleDocs, Value: "false"},
	}
	if !IsPayable(list) {
		t.Error("payment_state Payable should be payable")
	}
	if HasMultipleInvoices(list) {
		t.Error("contains_multiple_docs false reported as multiple")
	}
	if IsPayable(nil) || HasMultipleInvoices(nil) {
		t.Error("empty extractions should be neither payable nor multiple")
	}
}

func TestFetchDataForReview(t *testing.T) {
	b := fakeapi.New(nil)
	b.AddDocument(entity.Document{ID: "doc-1"}, entity.ExtractionResult{
		Extractions: []entity.Extraction{
			{Name: constants.ExtractionPaymentState, Value: "payable"},
			{Name: constants.ExtractionIBAN, Value: "flat-loses"},
		},
		Payment: [][]entity.Extraction{sampleExtractions()},
	})
	b.AddDocument(entity.Document{ID: "doc-2"}, entity.ExtractionResult{
		Extractions: []entity.Extraction{{Name: constants.ExtractionPaymentState, Value: "other"}},
	})
	g := newGateway(t, b)
	ctx := context.Background()

	data, err := g.FetchDataForReview(ctx, "doc-1")
	if err != nil {
		t.Fatalf("FetchDataForReview: %v", err)
	}
	if data.Document.ID != "doc-1" || !IsPayable(data.Extractions) {
		t.Errorf("data = %+v", data)
	}
	if v, _ := ExtractField(data.Extractions, constants.ExtractionIBAN); v != "DE89370400440532013000" {
		t.Errorf("payment group should win, iban = %q", v)
	}

	if _, err := g.FetchDataForReview(ctx, "doc-2"); !errors.Is(err, common.ErrNoPaymentDataExtracted) {
		t.Errorf("doc without payment group err = %v", err)
	}

	b.FailNext(fakeapi.OpExtractions, http.StatusInternalServerError, 1)
	if _, err := g.FetchDataForReview(ctx, "doc-1"); !errors.Is(err, common.ErrAPI) {
		t.Errorf("backend failure err = %v, want ErrAPI", err)
	}
}

func TestFetchDataForReviewCancelled(t *testing.T) {
	b := fakeapi.New(nil)
	b.AddDocument(entity.Document{ID: "doc-1"}, entity.ExtractionResult{Payment: [][]entity.Extraction{sampleExtractions()}})
	b.SetLatency(200 * time.Millisecond)
	g := newGateway(t, b)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	data, err := g.FetchDataForReview(ctx, "doc-1")
	if data != nil || !errors.Is(err, context.Canceled) {
		t.Fatalf("cancelled fetch = %v, %v; want nil, context.Canceled", data, err)
	}
}

func TestFetchDataForReviewAsync(t *testing.T) {
	b := fakeapi.New(nil)
	b.AddDocument(entity.Document{ID: "doc-1"}, entity.ExtractionResult{Payment: [][]entity.Extraction{sampleExtractions()}})
	g := newGateway(t, b)

	got := make(chan error, 1)
	g.FetchDataForReviewAsync(context.Background(), "doc-1", func(d *entity.DataForReview, err error) {
		got <- err
	})
	select {
	case err := <-got:
		if err != nil {
			t.Fatalf("async fetch: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("completion never called")
	}

	b.SetLatency(100 * time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	called := make(chan struct{}, 1)
	g.FetchDataForReviewAsync(ctx, "doc-1", func(*entity.DataForReview, error) { called <- struct{}{} })
	cancel()
	select {
	case <-called:
		t.Fatal("completion called after cancellation")
	case <-time.After(300 * time.Millisecond):
	}
}

func TestPreviewRejectsPageZero(t *testing.T) {
	g := newGateway(t, fakeapi.New(nil))
	if _, err := g.Preview(context.Background(), "doc-1", 0); !errors.Is(err, common.ErrInvalidInput) {
		t.Errorf("err = %v, want ErrInvalidInput", err)
	}
}
