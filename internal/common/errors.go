package common

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Common application errors
var (
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrDatabase     = errors.New("database error")
	ErrValidation   = errors.New("validation failed")

	ErrAPI                    = errors.New("api error")
	ErrNoInstalledApps        = errors.New("no installed payment provider apps")
	ErrNoPaymentDataExtracted = errors.New("no payment data extracted")
	ErrRequestCreationFailed  = errors.New("payment request creation failed")
	ErrNoProviderSelected     = errors.New("no payment provider selected")
	ErrRequestInFlight        = errors.New("payment request creation already in flight")
	ErrInvalidTransition      = errors.New("invalid state transition")
)

// NewAppError builds an AppError.
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// APIError wraps any transport, HTTP status or decoding failure of a backend call.
// It matches ErrAPI with errors.Is.
type APIError struct {
	Op         string
	StatusCode int
	Body       string
	Cause      error
}

func (e *APIError) Error() string {
	var b strings.Builder
	b.WriteString("api ")
	b.WriteString(e.Op)
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, ": status %d", e.StatusCode)
	}
	if e.Body != "" {
		b.WriteString(": ")
		b.WriteString(truncate(e.Body, 256))
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

func (e *APIError) Unwrap() error { return e.Cause }

func (e *APIError) Is(target error) bool { return target == ErrAPI }

// Timeout reports whether the call failed because a deadline was exceeded.
func (e *APIError) Timeout() bool {
	if errors.Is(e.Cause, context.DeadlineExceeded) {
		return true
	}
	var t interface{ Timeout() bool }
	return errors.As(e.Cause, &t) && t.Timeout()
}

// NewAPIError builds an APIError for op. A nil cause with a zero status is allowed
// for decoding failures described by body alone.
func NewAPIError(op string, statusCode int, body string, cause error) *APIError {
	return &APIError{Op: op, StatusCode: statusCode, Body: body, Cause: cause}
}

// ValidationFailedError carries one entry per payment field that failed validation.
// It is recoverable: callers correct the fields and retry.
type ValidationFailedError struct {
	Fields []ValidationError
}

func (e *ValidationFailedError) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Error())
	}
	return strings.Join(msgs, "; ")
}

func (e *ValidationFailedError) Is(target error) bool { return target == ErrValidation }

// Field returns the failure recorded for name, if any.
func (e *ValidationFailedError) Field(name string) (ValidationError, bool) {
	for _, f := range e.Fields {
		if f.Field == name {
			return f, true
		}
	}
	return ValidationError{}, false
}

// RequestCreationError is an API failure that happened while creating a payment request.
// It matches both ErrRequestCreationFailed and ErrAPI.
type RequestCreationError struct {
	Cause error
}

func (e *RequestCreationError) Error() string {
	return fmt.Sprintf("%v: %v", ErrRequestCreationFailed, e.Cause)
}

func (e *RequestCreationError) Unwrap() error { return e.Cause }

func (e *RequestCreationError) Is(target error) bool { return target == ErrRequestCreationFailed }

// StatusFromError maps the payment error taxonomy onto gRPC status codes.
func StatusFromError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	switch {
	case errors.Is(err, ErrValidation), errors.Is(err, ErrInvalidInput):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, ErrNoInstalledApps),
		errors.Is(err, ErrNoPaymentDataExtracted),
		errors.Is(err, ErrNoProviderSelected),
		errors.Is(err, ErrInvalidTransition):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, ErrRequestInFlight):
		return status.Error(codes.ResourceExhausted, err.Error())
	case errors.Is(err, ErrRequestCreationFailed):
		return status.Error(codes.Aborted, err.Error())
	case errors.Is(err, ErrAPI):
		return status.Error(codes.Unavailable, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	}
	return status.Error(codes.Internal, err.Error())
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}
