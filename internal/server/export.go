package server

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joseph-ayodele/payment-orchestrator/internal/utils"
)

// ExportPaymentRequests renders the recorded payment requests to XLSX.
// from_date and to_date are optional YYYY-MM-DD bounds:
// - only from -> from..today (inclusive)
// - only to   -> beginning..to (inclusive)
// - none      -> all.
func (s *PaymentService) ExportPaymentRequests(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if s.deps.Export == nil {
		return nil, status.Error(codes.Unimplemented, "export is not configured")
	}
	from, err := parseDate(utils.StringField(req, "from_date"))
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, "from_date must be YYYY-MM-DD")
	}
	to, err := parseDate(utils.StringField(req, "to_date"))
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, "to_date must be YYYY-MM-DD")
	}

	xlsx, err := s.deps.Export.ExportPaymentRequestsXLSX(ctx, from, to)
	if err != nil {
		s.logger.Error("export.xlsx.failed", "err", err)
		return nil, status.Error(codes.Internal, err.Error())
	}
	name := fmt.Sprintf("payment-requests-%s.xlsx", s.now().UTC().Format("20060102"))
	return utils.ToStruct(map[string]any{"filename": name, "xlsx": xlsx})
}

func parseDate(v string) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
