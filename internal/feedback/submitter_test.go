package feedback

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
)

func confirmedInfo() entity.PaymentInfo {
	return entity.PaymentInfo{
		Recipient: "Dr. Smith GmbH",
		IBAN:      "DE89370400440532013000",
		Amount:    decimal.RequireFromString("20"),
		Purpose:   "Invoice 123",
	}
}

func TestBuildFeedback(t *testing.T) {
	box := &entity.Box{Page: 1, Left: 10}
	in := []entity.Extraction{
		{Name: constants.ExtractionPaymentRecipient, Entity: "companyname", Value: "Dr. Smith", Box: box},
		{Name: constants.ExtractionAmountToPay, Entity: "amount", Value: "15.00:EUR"},
		{Name: constants.ExtractionPaymentState, Value: "payable"},
	}
	fb := BuildFeedback(in, confirmedInfo())

	get := func(list []entity.Extraction, name constants.ExtractionName) (entity.Extraction, bool) {
		for _, e := range list {
			if e.Name == name {
				return e, true
			}
		}
		return entity.Extraction{}, false
	}

	rec, _ := get(fb.Extractions, constants.ExtractionPaymentRecipient)
	if rec.Value != "Dr. Smith GmbH" || rec.Box != box || rec.Entity != "companyname" {
		t.Errorf("recipient feedback = %+v", rec)
	}
	amt, _ := get(fb.Extractions, constants.ExtractionAmountToPay)
	if amt.Value != "20.00:EUR" {
		t.Errorf("amount feedback = %q, want 20.00:EUR", amt.Value)
	}
	if _, ok := get(fb.Extractions, constants.ExtractionPaymentState); !ok {
		t.Error("unrelated extraction dropped")
	}
	if _, ok := get(fb.Extractions, constants.ExtractionIBAN); !ok {
		t.Error("missing iban should be added")
	}
	if len(fb.Payment) != 1 || len(fb.Payment[0]) != 4 {
		t.Fatalf("payment group = %+v", fb.Payment)
	}
}

func TestSubmit(t *testing.T) {
	b := fakeapi.New(nil)
	b.AddDocument(entity.Document{ID: "doc-1"}, entity.ExtractionResult{})
	srv := httptest.NewServer(b.Router())
	defer srv.Close()
	s := NewSubmitter(api.NewClient(common.APIConfig{DocumentBaseURL: srv.URL, Timeout: 5 * time.Second}), nil)

	job := Job{Document: entity.Document{ID: "doc-1"}, Info: confirmedInfo(), TraceID: "trace-1"}
	if err := s.Submit(context.Background(), job); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	got := b.Feedback()
	if len(got) != 1 || got[0].Value(constants.ExtractionIBAN) != "DE89370400440532013000" {
		t.Fatalf("feedback received = %+v", got)
	}

	b.FailNext(fakeapi.OpSubmitFeedback, http.StatusBadGateway, 1)
	if err := s.Submit(context.Background(), job); !errors.Is(err, common.ErrAPI) {
		t.Errorf("err = %v, want ErrAPI", err)
	}
}
