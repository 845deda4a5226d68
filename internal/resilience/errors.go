// Package resilience provides the retry/backoff helpers and the error
// taxonomy shared by the LLM gateways and the analysis pipeline.
package resilience

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"syscall"
)

// TransportError wraps a network-level failure reaching a backend: timeouts,
// refused connections, DNS failures. Transport errors are always retryable.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return "transport: " + e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// NewTransportError wraps err as a TransportError.
func NewTransportError(err error) *TransportError {
	return &TransportError{Err: err}
}

// BackendError is an explicit error response from a model backend (non-2xx
// status or API-level error object). It never aborts a dispatch batch; the
// failing model is recorded and the others proceed.
type BackendError struct {
	StatusCode int
	Detail     string
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("backend: status %d: %s", e.StatusCode, e.Detail)
}

// Retryable reports whether the backend status indicates a transient
// server-side condition.
func (e *BackendError) Retryable() bool {
	switch e.StatusCode {
	case 408, 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

// IsTransient returns true if the error chain contains a TransportError, a
// retryable BackendError, or matches common network failure patterns from
// wrapped HTTP client errors.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var te *TransportError
	if errors.As(err, &te) {
		return true
	}

	var be *BackendError
	if errors.As(err, &be) {
		return be.Retryable()
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, p := range []string{
		"connection reset by peer",
		"broken pipe",
		"temporary failure in name resolution",
		"no such host",
		"tls handshake timeout",
		"i/o timeout",
	} {
		if strings.Contains(msg, p) {
			return true
		}
	}

	return false
}
