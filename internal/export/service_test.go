package export

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/payment-orchestrator/constants"
	"github.com/joseph-ayodele/payment-orchestrator/internal/entity"
	"github.com/joseph-ayodele/payment-orchestrator/internal/repository"
)

func seed(t *testing.T) *repository.MemoryPaymentRequestRepository {
	t.Helper()
	repo := repository.NewMemoryPaymentRequestRepository()
	recs := []entity.PaymentRequestRecord{
		{ID: "r1", ProviderName: "Bank A", Recipient: "Dr. Smith", IBAN: "DE89370400440532013000",
			Amount: decimal.RequireFromString("15"), Currency: "EUR", Purpose: "Invoice 1",
			Outcome: constants.OutcomeAppOpened, CreatedAt: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)},
		{ID: "r2", ProviderName: "Bank B", Recipient: "Dr. Jones", IBAN: "DE89370400440532013000",
			Amount: decimal.RequireFromString("7.5"), Currency: "EUR", Purpose: "Invoice 2",
			Outcome: constants.OutcomePDFShared, CreatedAt: time.Date(2024, 3, 2, 23, 30, 0, 0, time.UTC)},
		{ID: "r3", ProviderName: "Bank A", Recipient: "Dr. Who", IBAN: "DE89370400440532013000",
			Amount: decimal.RequireFromString("1"), Currency: "EUR", Purpose: "Invoice 3",
			Outcome: constants.OutcomeInstallRequired, CreatedAt: time.Date(2024, 3, 5, 8, 0, 0, 0, time.UTC)},
	}
	for _, r := range recs {
		if err := repo.Record(context.Background(), r); err != nil {
			t.Fatal(err)
		}
	}
	return repo
}

func readRows(t *testing.T, data []byte) [][]string {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("open xlsx: %v", err)
	}
	defer f.Close()
	rows, err := f.GetRows(Sheet)
	if err != nil {
		t.Fatalf("rows: %v", err)
	}
	return rows
}

func TestExportAll(t *testing.T) {
	svc := NewService(seed(t), nil)
	data, err := svc.ExportPaymentRequestsXLSX(context.Background(), nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	rows := readRows(t, data)
	if len(rows) != 4 {
		t.Fatalf("rows = %d, want header + 3", len(rows))
	}
	if rows[0][0] != Headers[0] || rows[0][9] != "Outcome" {
		t.Errorf("header = %v", rows[0])
	}
	if rows[2][1] != "r2" || rows[2][6] != "7.50" || rows[2][9] != "PDF_SHARED" {
		t.Errorf("row = %v", rows[2])
	}
}

func TestExportWindowIsInclusive(t *testing.T) {
	svc := NewService(seed(t), nil)
	from := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)
	data, err := svc.ExportPaymentRequestsXLSX(context.Background(), &from, &to)
	if err != nil {
		t.Fatal(err)
	}
	rows := readRows(t, data)
	if len(rows) != 2 || rows[1][1] != "r2" {
		t.Fatalf("rows = %v, want only r2", rows)
	}
}

func TestExportFromDefaultsToToday(t *testing.T) {
	svc := NewService(seed(t), nil)
	svc.now = func() time.Time { return time.Date(2024, 3, 4, 12, 0, 0, 0, time.UTC) }
	from := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)
	data, err := svc.ExportPaymentRequestsXLSX(context.Background(), &from, nil)
	if err != nil {
		t.Fatal(err)
	}
	if rows := readRows(t, data); len(rows) != 2 {
		t.Fatalf("rows = %v, want header + r2", rows)
	}
}
