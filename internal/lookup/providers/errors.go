package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"syscall"

	"idsearch/internal/lookup/models"
)

// ProviderError wraps backend failures with a normalized kind
type ProviderError struct {
	Kind       models.FailureKind
	Source     string
	Message    string
	Underlying error
}

// Error implements the error interface
func (e *ProviderError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("source %s [%s]: %s: %v", e.Source, e.Kind, e.Message, e.Underlying)
	}
	return fmt.Sprintf("source %s [%s]: %s", e.Source, e.Kind, e.Message)
}

// Unwrap supports error unwrapping
func (e *ProviderError) Unwrap() error {
	return e.Underlying
}

// NewProviderError creates a new normalized provider error
func NewProviderError(kind models.FailureKind, source, message string, underlying error) *ProviderError {
	return &ProviderError{
		Kind:       kind,
		Source:     source,
		Message:    message,
		Underlying: underlying,
	}
}

// KindOf maps an error onto the failure taxonomy. ProviderError kinds win;
// otherwise deadlines and cancellation are timeouts, dial and transport errors
// are connection failures and decode errors are malformed responses.
func KindOf(err error) models.FailureKind {
	if err == nil {
		return ""
	}

	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Kind
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return models.FailureTimeout
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return models.FailureTimeout
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return models.FailureMalformedResponse
	}

	var opErr *net.OpError
	var dnsErr *net.DNSError
	var urlErr *url.Error
	if errors.As(err, &opErr) || errors.As(err, &dnsErr) || errors.As(err, &urlErr) ||
		errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) {
		return models.FailureConnection
	}

	return models.FailureInternal
}

// KindForStatus maps a non-2xx HTTP status onto the failure taxonomy.
func KindForStatus(status int) models.FailureKind {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return models.FailureAuth
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return models.FailureTimeout
	case status == http.StatusTooManyRequests || status >= 500:
		return models.FailureConnection
	default:
		return models.FailureMalformedResponse
	}
}

// FailedFromError turns an adapter error into a Failed result.
func FailedFromError(err error) models.ProviderResult {
	return models.Failed(KindOf(err), err.Error())
}

// ErrNoAdapters is returned when a dispatcher is built without sources.
var ErrNoAdapters = errors.New("no adapters registered")
