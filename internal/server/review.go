package server

import (
	"context"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joseph-ayodele/payment-orchestrator/internal/core"
	"github.com/joseph-ayodele/payment-orchestrator/internal/extraction"
	"github.com/joseph-ayodele/payment-orchestrator/internal/utils"
)

// ReviewDocument loads an analysed document into the session and returns the
// prefilled payment fields. A later Pay with use_review sends feedback for it.
func (s *PaymentService) ReviewDocument(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	sess, err := s.lookup(req)
	if err != nil {
		return nil, err
	}
	docID := utils.StringField(req, "document_id")
	if docID == "" {
		return nil, status.Error(codes.InvalidArgument, "document_id is required")
	}
	if s.deps.Gateway == nil {
		return nil, status.Error(codes.Unimplemented, "document review is not configured")
	}

	s.logger.Info("review.start", "session_id", sess.orch.ID(), "document_id", docID)
	data, err := s.deps.Gateway.FetchDataForReview(ctx, docID)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	sess.review = data
	s.mu.Unlock()

	fields := core.PayInputFromReview(data).Fields
	resp := s.sessionMap(sess.orch)
	resp["document"] = utils.DocumentToMap(data.Document)
	resp["extractions"] = utils.ExtractionsToList(data.Extractions)
	resp["fields"] = map[string]any{
		"recipient": fields.Recipient,
		"iban":      fields.IBAN,
		"bic":       fields.BIC,
		"amount":    fields.Amount,
		"purpose":   fields.Purpose,
	}
	resp["payable"] = extraction.IsPayable(data.Extractions)
	resp["multiple_invoices"] = extraction.HasMultipleInvoices(data.Extractions)
	s.logger.Info("review.ok", "session_id", sess.orch.ID(), "document_id", docID, "extractions", len(data.Extractions))
	return utils.ToStruct(resp)
}

// DocumentPreview returns one rendered page of a document, base64 encoded.
func (s *PaymentService) DocumentPreview(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	docID := utils.StringField(req, "document_id")
	if docID == "" {
		return nil, status.Error(codes.InvalidArgument, "document_id is required")
	}
	if s.deps.Gateway == nil {
		return nil, status.Error(codes.Unimplemented, "document review is not configured")
	}
	page := utils.IntField(req, "page", 1)
	img, err := s.deps.Gateway.Preview(ctx, docID, page)
	if err != nil {
		return nil, err
	}
	return utils.ToStruct(map[string]any{"document_id": docID, "page": page, "image": img})
}
