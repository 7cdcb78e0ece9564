// Package apperr defines the failure kinds shared by the auth service, the ownership
// authorizer and the transports, and maps them to HTTP and gRPC status codes.
package apperr

import (
	"errors"
	"net/http"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Sentinel errors. Services wrap them with context (see samber/oops); callers match with errors.Is.
var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrConflict           = errors.New("account with this username or email already exists")
	ErrInvalidCredentials = errors.New("invalid username, email or password")
	ErrUnauthorized       = errors.New("unauthorized request")
	ErrStaleRefreshToken  = errors.New("refresh token is expired or used")
	ErrForbidden          = errors.New("not permitted to modify this resource")
	ErrNotFound           = errors.New("not found")
)

// Kind classifies err into one of the taxonomy sentinels, or nil for internal failures.
func Kind(err error) error {
	for _, k := range []error{
		ErrInvalidInput,
		ErrConflict,
		ErrInvalidCredentials,
		ErrUnauthorized,
		ErrStaleRefreshToken,
		ErrForbidden,
		ErrNotFound,
	} {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}

// HTTPStatus returns the HTTP status code for err. Unknown errors are 500.
func HTTPStatus(err error) int {
	switch Kind(err) {
	case ErrInvalidInput:
		return http.StatusBadRequest
	case ErrInvalidCredentials, ErrUnauthorized, ErrStaleRefreshToken:
		return http.StatusUnauthorized
	case ErrForbidden:
		return http.StatusForbidden
	case ErrNotFound:
		return http.StatusNotFound
	case ErrConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage returns the client-safe message for err. Internal failures never leak their cause.
func PublicMessage(err error) string {
	k := Kind(err)
	if k == nil {
		return "internal server error"
	}
	if k == ErrInvalidInput {
		// Validation errors carry a field-level reason after the sentinel.
		var v *ValidationError
		if errors.As(err, &v) {
			return v.Error()
		}
	}
	return k.Error()
}

// GRPCStatus converts err to a gRPC status error.
func GRPCStatus(err error) error {
	if err == nil {
		return nil
	}
	var c codes.Code
	switch Kind(err) {
	case ErrInvalidInput:
		c = codes.InvalidArgument
	case ErrInvalidCredentials, ErrUnauthorized, ErrStaleRefreshToken:
		c = codes.Unauthenticated
	case ErrForbidden:
		c = codes.PermissionDenied
	case ErrNotFound:
		c = codes.NotFound
	case ErrConflict:
		c = codes.AlreadyExists
	default:
		c = codes.Internal
	}
	return status.Error(c, PublicMessage(err))
}

// ValidationError is an ErrInvalidInput with a human-readable reason.
type ValidationError struct {
	Reason string
}

// Invalid returns a ValidationError for reason.
func Invalid(reason string) error {
	return &ValidationError{Reason: reason}
}

func (e *ValidationError) Error() string { return e.Reason }

// Unwrap makes errors.Is(err, ErrInvalidInput) hold.
func (e *ValidationError) Unwrap() error { return ErrInvalidInput }
