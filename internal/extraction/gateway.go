// Package extraction fetches analysed documents and reads payment fields out
// of their extractions.
package extraction

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joseph-ayodele/payment-orchestrator/constants"
	"github.com/joseph-ayodele/payment-orchestrator/internal/api"
	"github.com/joseph-ayodele/payment-orchestrator/internal/common"
	"github.com/joseph-ayodele/payment-orchestrator/internal/entity"
	"github.com/joseph-ayodele/payment-orchestrator/internal/validation"
)

// Gateway wraps the document backend for the review step.
type Gateway struct {
	documents api.DocumentAPI
	logger    *slog.Logger
}

func NewGateway(documents api.DocumentAPI, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{documents: documents, logger: logger}
}

// FetchDataForReview loads the document and its extractions. The result
// carries the first payment group when there is one, otherwise the flat list.
// ErrNoPaymentDataExtracted is returned when the backend found no payment
// group. A cancelled ctx yields ctx.Err() and no result.
func (g *Gateway) FetchDataForReview(ctx context.Context, documentID string) (*entity.DataForReview, error) {
	logger := common.LoggerFrom(ctx, g.logger).With("document_id", documentID)
	start := time.Now()

	doc, err := g.documents.FetchDocument(ctx, documentID)
	if err != nil {
		return nil, g.failed(ctx, logger, "fetch_document", err, start)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res, err := g.documents.Extractions(ctx, *doc)
	if err != nil {
		return nil, g.failed(ctx, logger, "extractions", err, start)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if !res.HasPaymentGroup() {
		logger.Warn("extraction.review.no_payment_data", "extractions", len(res.Extractions))
		return nil, fmt.Errorf("document %s: %w", documentID, common.ErrNoPaymentDataExtracted)
	}

	data := &entity.DataForReview{
		Document:    *doc,
		Extractions: mergeExtractions(res.Payment[0], res.Extractions),
	}
	logger.Info("extraction.review.ok",
		"extractions", len(data.Extractions),
		"payable", IsPayable(data.Extractions),
		"multiple_invoices", HasMultipleInvoices(data.Extractions),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return data, nil
}

// FetchDataForReviewAsync runs FetchDataForReview in a goroutine. done is not
// called at all once ctx is cancelled.
func (g *Gateway) FetchDataForReviewAsync(ctx context.Context, documentID string, done func(*entity.DataForReview, error)) {
	go func() {
		data, err := g.FetchDataForReview(ctx, documentID)
		if ctx.Err() != nil {
			g.logger.Debug("extraction.review.cancelled", "document_id", documentID)
			return
		}
		done(data, err)
	}()
}

// Preview returns the rendered image of a document page.
func (g *Gateway) Preview(ctx context.Context, documentID string, page int) ([]byte, error) {
	if page < 1 {
		return nil, fmt.Errorf("page %d: %w", page, common.ErrInvalidInput)
	}
	return g.documents.Preview(ctx, documentID, page)
}

func (g *Gateway) failed(ctx context.Context, logger *slog.Logger, step string, err error, start time.Time) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	logger.Error("extraction.review.failed", "step", step, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
	return err
}

// mergeExtractions puts the payment group first so its values win name
// lookups, then appends flat extractions such as payment_state.
func mergeExtractions(group, flat []entity.Extraction) []entity.Extraction {
	out := make([]entity.Extraction, 0, len(group)+len(flat))
	out = append(out, group...)
	out = append(out, flat...)
	return out
}

// ExtractField returns the value of the first extraction named name.
func ExtractField(extractions []entity.Extraction, name constants.ExtractionName) (string, bool) {
	for _, e := range extractions {
		if e.Name == name {
			return e.Value, true
		}
	}
	return "", false
}

// IsPayable reports whether the backend classified the document as payable.
func IsPayable(extractions []entity.Extraction) bool {
	v, _ := ExtractField(extractions, constants.ExtractionPaymentState)
	return strings.EqualFold(strings.TrimSpace(v), constants.PaymentStatePayable)
}

// HasMultipleInvoices reports whether the document bundles several invoices.
func HasMultipleInvoices(extractions []entity.Extraction) bool {
	v, _ := ExtractField(extractions, constants.ExtractionContainsMultipleDocs)
	return strings.EqualFold(strings.TrimSpace(v), constants.MultipleDocsTrue)
}

// PaymentInfoFromExtractions builds the typed payment fields. An amount that
// does not parse is left zero so validation reports it.
func PaymentInfoFromExtractions(extractions []entity.Extraction) entity.PaymentInfo {
	info := entity.PaymentInfo{Currency: constants.DefaultCurrency}
	info.Recipient, _ = ExtractField(extractions, constants.ExtractionPaymentRecipient)
	if iban, ok := ExtractField(extractions, constants.ExtractionIBAN); ok {
		info.IBAN = validation.NormalizeIBAN(iban)
	}
	info.BIC, _ = ExtractField(extractions, constants.ExtractionBIC)
	info.Purpose, _ = ExtractField(extractions, constants.ExtractionPaymentPurpose)
	if raw, ok := ExtractField(extractions, constants.ExtractionAmountToPay); ok {
		if amount, currency, ok := validation.ParseAmount(raw); ok {
			info.Amount = amount
			info.Currency = currency
		}
	}
	return info
}
