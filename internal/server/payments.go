package server

import (
	"context"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joseph-ayodele/payment-orchestrator/internal/core"
	"github.com/joseph-ayodele/payment-orchestrator/internal/utils"
	"github.com/joseph-ayodele/payment-orchestrator/internal/validation"
)

// ListProviders returns the sorted providers of a session.
func (s *PaymentService) ListProviders(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	sess, err := s.lookup(req)
	if err != nil {
		return nil, err
	}
	resp := s.sessionMap(sess.orch)
	resp["providers"] = s.providerList(sess.orch.Providers())
	return utils.ToStruct(resp)
}

func (s *PaymentService) SelectProvider(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	sess, err := s.lookup(req)
	if err != nil {
		return nil, err
	}
	id := utils.StringField(req, "provider_id")
	if id == "" {
		return nil, status.Error(codes.InvalidArgument, "provider_id is required")
	}
	if err := sess.orch.SelectProviderByID(ctx, id); err != nil {
		return nil, err
	}
	return utils.ToStruct(s.sessionMap(sess.orch))
}

// Pay validates the fields and runs the flow. With use_review the fields of
// the reviewed document fill in whatever the request leaves empty.
func (s *PaymentService) Pay(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	sess, err := s.lookup(req)
	if err != nil {
		return nil, err
	}

	var in core.PayInput
	if utils.BoolField(req, "use_review") {
		s.mu.Lock()
		review := sess.review
		s.mu.Unlock()
		if review == nil {
			return nil, status.Error(codes.FailedPrecondition, "no document reviewed in this session")
		}
		in = core.PayInputFromReview(review)
	}
	overlay(&in.Fields, req)

	out, err := sess.orch.Pay(ctx, in)
	if err != nil {
		return nil, err
	}
	return s.outcomeStruct(sess.orch, out)
}

func (s *PaymentService) ConfirmOnboarding(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	sess, err := s.lookup(req)
	if err != nil {
		return nil, err
	}
	out, err := sess.orch.ConfirmOnboarding(ctx)
	if err != nil {
		return nil, err
	}
	return s.outcomeStruct(sess.orch, out)
}

func (s *PaymentService) Resume(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	sess, err := s.lookup(req)
	if err != nil {
		return nil, err
	}
	out, err := sess.orch.Resume(ctx)
	if err != nil {
		return nil, err
	}
	return s.outcomeStruct(sess.orch, out)
}

func (s *PaymentService) Retry(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	sess, err := s.lookup(req)
	if err != nil {
		return nil, err
	}
	out, err := sess.orch.Retry(ctx)
	if err != nil {
		return nil, err
	}
	return s.outcomeStruct(sess.orch, out)
}

// GetPaymentRequest fetches a payment request from the backend. With
// include_qr the QR code PNG is attached base64 encoded.
func (s *PaymentService) GetPaymentRequest(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id := utils.StringField(req, "request_id")
	if id == "" {
		return nil, status.Error(codes.InvalidArgument, "request_id is required")
	}
	pr, err := s.deps.Payments.PaymentRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := utils.PaymentRequestToMap(pr)
	if utils.BoolField(req, "include_qr") {
		png, err := s.deps.Payments.QRCodeImage(ctx, id)
		if err != nil {
			return nil, err
		}
		resp["qr_png"] = png
	}
	return utils.ToStruct(resp)
}

// overlay copies the non-empty payment fields of req onto f.
func overlay(f *validation.Fields, req *structpb.Struct) {
	set := func(dst *string, key string) {
		if v := utils.StringField(req, key); v != "" {
			*dst = v
		}
	}
	set(&f.Recipient, "recipient")
	set(&f.IBAN, "iban")
	set(&f.BIC, "bic")
	set(&f.Amount, "amount")
	set(&f.Purpose, "purpose")
}

// outcomeStruct renders the result of a flow step. A nil outcome means the
// flow stopped for onboarding.
func (s *PaymentService) outcomeStruct(o *core.Orchestrator, out *core.Outcome) (*structpb.Struct, error) {
	resp := s.sessionMap(o)
	if out == nil {
		resp["onboarding_required"] = o.State() == core.StateOnboardingPending
		return utils.ToStruct(resp)
	}
	m := map[string]any{
		"kind":       string(out.Kind),
		"request_id": out.RequestID,
		"provider":   utils.ProviderToMap(out.Provider, s.installed(out.Provider)),
		"payment":    utils.PaymentInfoToMap(out.Info),
	}
	if out.DeepLink != "" {
		m["deep_link"] = out.DeepLink
		m["opened"] = out.Opened
	}
	if out.Artifact != nil {
		m["artifact_path"] = out.Artifact.Path
		m["artifact_size"] = out.Artifact.Size
	}
	resp["outcome"] = m
	return utils.ToStruct(resp)
}
