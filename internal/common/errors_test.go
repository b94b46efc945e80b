package common

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestStatusFromError(t *testing.T) {
	apiErr := NewAPIError("createPaymentRequest", 502, "bad gateway", nil)
	tests := []struct {
		name string
		err  error
		want codes.Code
	}{
		{"validation", &ValidationFailedError{Fields: []ValidationError{{Field: "iban"}}}, codes.InvalidArgument},
		{"not found", fmt.Errorf("provider x: %w", ErrNotFound), codes.NotFound},
		{"no apps", ErrNoInstalledApps, codes.FailedPrecondition},
		{"no payment data", fmt.Errorf("doc: %w", ErrNoPaymentDataExtracted), codes.FailedPrecondition},
		{"in flight", ErrRequestInFlight, codes.ResourceExhausted},
		{"creation failed", &RequestCreationError{Cause: apiErr}, codes.Aborted},
		{"api", apiErr, codes.Unavailable},
		{"canceled", context.Canceled, codes.Canceled},
		{"other", errors.New("boom"), codes.Internal},
		{"status passthrough", status.Error(codes.PermissionDenied, "no"), codes.PermissionDenied},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := status.Code(StatusFromError(tc.err)); got != tc.want {
				t.Errorf("code = %s, want %s", got, tc.want)
			}
		})
	}
	if StatusFromError(nil) != nil {
		t.Error("nil error should stay nil")
	}
}

func TestAPIErrorMatching(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", NewAPIError("paymentProviders", 0, "", context.DeadlineExceeded))
	if !errors.Is(err, ErrAPI) {
		t.Error("APIError should match ErrAPI")
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) || !apiErr.Timeout() {
		t.Error("deadline should report Timeout")
	}

	creation := &RequestCreationError{Cause: NewAPIError("createPaymentRequest", 500, "", nil)}
	if !errors.Is(creation, ErrRequestCreationFailed) || !errors.Is(creation, ErrAPI) {
		t.Error("RequestCreationError should match both sentinels")
	}
}

func TestValidationFailedErrorField(t *testing.T) {
	v := NewValidator()
	v.Field("recipient", "", Required)
	v.Field("currency", "eur", CurrencyCode)
	err := v.Error()
	var vErr *ValidationFailedError
	if !errors.As(err, &vErr) || len(vErr.Fields) != 2 {
		t.Fatalf("err = %v", err)
	}
	if _, ok := vErr.Field("currency"); !ok {
		t.Error("currency failure missing")
	}
	if !errors.Is(err, ErrValidation) {
		t.Error("should match ErrValidation")
	}
}
