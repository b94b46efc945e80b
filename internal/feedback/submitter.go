// Package feedback reports user-confirmed payment fields back to the
// document backend.
package feedback

import (
	"context"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/payment-orchestrator/constants"
	"github.com/joseph-ayodele/payment-orchestrator/internal/api"
	"github.com/joseph-ayodele/payment-orchestrator/internal/common"
	"github.com/joseph-ayodele/payment-orchestrator/internal/entity"
)

// Job is one feedback submission waiting for delivery.
type Job struct {
	Document    entity.Document
	Extractions []entity.Extraction
	Info        entity.PaymentInfo
	SubmittedAt time.Time
	TraceID     string
}

// Queue accepts jobs for fire-and-forget delivery.
type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}

// Submitter sends feedback synchronously.
type Submitter struct {
	documents api.DocumentAPI
	logger    *slog.Logger
}

func NewSubmitter(documents api.DocumentAPI, logger *slog.Logger) *Submitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Submitter{documents: documents, logger: logger}
}

// Submit sends the confirmed values of job.Info for job.Document.
func (s *Submitter) Submit(ctx context.Context, job Job) error {
	if job.TraceID != "" {
		ctx = common.WithRequestID(ctx, job.TraceID)
	}
	logger := common.LoggerFrom(ctx, s.logger).With("document_id", job.Document.ID)
	start := time.Now()

	fb := BuildFeedback(job.Extractions, job.Info)
	if err := s.documents.SubmitFeedback(ctx, job.Document, fb); err != nil {
		logger.Error("feedback.submit.failed", "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return err
	}
	logger.Info("feedback.submit.ok", "fields", len(fb.Extractions), "elapsed_ms", time.Since(start).Milliseconds())
	return nil
}

// BuildFeedback overwrites the payment fields in extractions with the
// confirmed values from info, adding any that are missing. The same fields
// are sent as a single payment compound group.
func BuildFeedback(extractions []entity.Extraction, info entity.PaymentInfo) entity.ExtractionResult {
	confirmed := []entity.Extraction{
		{Name: constants.ExtractionPaymentRecipient, Entity: constants.EntityText, Value: info.Recipient},
		{Name: constants.ExtractionIBAN, Entity: constants.EntityIBAN, Value: info.IBAN},
		{Name: constants.ExtractionAmountToPay, Entity: constants.EntityAmount, Value: info.AmountString()},
		{Name: constants.ExtractionPaymentPurpose, Entity: constants.EntityText, Value: info.Purpose},
	}

	byName := make(map[constants.ExtractionName]entity.Extraction, len(confirmed))
	for _, c := range confirmed {
		byName[c.Name] = c
	}

	flat := make([]entity.Extraction, 0, len(extractions)+len(confirmed))
	seen := make(map[constants.ExtractionName]bool, len(extractions))
	for _, e := range extractions {
		if seen[e.Name] {
			continue
		}
		seen[e.Name] = true
		if c, ok := byName[e.Name]; ok {
			c.Box = e.Box
			if e.Entity != "" {
				c.Entity = e.Entity
			}
			e = c
		}
		flat = append(flat, e)
	}

	group := make([]entity.Extraction, 0, len(confirmed))
	for _, c := range confirmed {
		for _, e := range flat {
			if e.Name == c.Name {
				c = e
				break
			}
		}
		if !seen[c.Name] {
			flat = append(flat, c)
		}
		group = append(group, c)
	}
	return entity.ExtractionResult{Extractions: flat, Payment: [][]entity.Extraction{group}}
}
