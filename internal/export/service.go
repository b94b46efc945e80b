package export

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/payment-orchestrator/internal/repository"
)

// Sheet is the worksheet holding the exported payment requests.
const Sheet = "Payment Requests"

// Headers are the column titles of Sheet, in order.
var Headers = []string{
	"Created At",
	"Request ID",
	"Provider",
	"Document",
	"Recipient",
	"IBAN",
	"Amount",
	"Currency",
	"Purpose",
	"Outcome",
}

// Service produces XLSX reports of the recorded payment requests.
type Service struct {
	history repository.PaymentRequestRepository
	logger  *slog.Logger
	now     func() time.Time
}

func NewService(history repository.PaymentRequestRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{history: history, logger: logger, now: time.Now}
}

// ExportPaymentRequestsXLSX returns an XLSX workbook (as bytes) for the given date window.
// Dates are whole UTC days and both ends are inclusive.
// If only from is provided -> from..today.
// If only to is provided   -> beginning..to.
// If neither is provided   -> every recorded request.
func (s *Service) ExportPaymentRequestsXLSX(ctx context.Context, from, to *time.Time) ([]byte, error) {
	start := time.Now()
	fromTime, toTime := s.window(from, to)

	recs, err := s.history.List(ctx, fromTime, toTime)
	if err != nil {
		return nil, fmt.Errorf("query payment requests: %w", err)
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	if err := f.SetSheetName("Sheet1", Sheet); err != nil {
		return nil, err
	}
	index, err := f.GetSheetIndex(Sheet)
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(index)

	for i, h := range Headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(Sheet, cell, h)
	}

	row := 2
	for _, r := range recs {
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(Sheet, cell, v)
		}
		write(1, r.CreatedAt.UTC().Format(time.RFC3339))
		write(2, r.ID)
		write(3, r.ProviderName)
		write(4, r.DocumentID)
		write(5, r.Recipient)
		write(6, r.IBAN)
		write(7, r.Amount.StringFixed(2))
		write(8, r.Currency)
		write(9, truncate(r.Purpose, 140))
		write(10, string(r.Outcome))
		row++
	}

	_ = f.SetColWidth(Sheet, "A", "A", 22) // created
	_ = f.SetColWidth(Sheet, "B", "B", 38) // id
	_ = f.SetColWidth(Sheet, "C", "E", 24)
	_ = f.SetColWidth(Sheet, "F", "F", 30) // iban
	_ = f.SetColWidth(Sheet, "G", "H", 12)
	_ = f.SetColWidth(Sheet, "I", "I", 48) // purpose
	_ = f.SetColWidth(Sheet, "J", "J", 18)

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"rows", len(recs),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

// window turns date bounds into the instants passed to the repository.
func (s *Service) window(from, to *time.Time) (*time.Time, *time.Time) {
	var fromTime, toTime *time.Time
	if from != nil {
		f := day(*from)
		fromTime = &f
	}
	if to == nil && from != nil {
		today := s.now().UTC()
		to = &today
	}
	if to != nil {
		t := day(*to).Add(24*time.Hour - time.Millisecond)
		toTime = &t
	}
	return fromTime, toTime
}

func day(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	if n <= 1 {
		return s[:n]
	}
	return s[:n-1] + "…"
}
