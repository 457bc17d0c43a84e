package api

import (
	"errors"
	"fmt"
	"net/http"
)

// Транспортные ошибки имеют фиксированные код и сообщение
const (
	CodeNetworkError     = "NETWORK_ERROR"
	MessageNetworkError  = "Network error or invalid JSON response"
	MessageRequestFailed = "API request failed"
)

// APIError is the typed failure of every Client call.
//
// Server-reported failures carry the real HTTP status and the optional
// machine-readable code from the response body. Transport faults (network,
// timeout, cancelled context, malformed body) always have Status 500 and
// Code NETWORK_ERROR; the underlying cause is available through Unwrap.
type APIError struct {
	Err       error
	Message   string
	Code      string
	Status    int
	transport bool
}

// NewTransportError оборачивает транспортную ошибку в APIError
func NewTransportError(cause error) *APIError {
	return &APIError{
		Err:       cause,
		Message:   MessageNetworkError,
		Code:      CodeNetworkError,
		Status:    http.StatusInternalServerError,
		transport: true,
	}
}

func (e *APIError) Error() string {
	if e.transport && e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	if e.Code != "" {
		return fmt.Sprintf("%s (status %d, code %s)", e.Message, e.Status, e.Code)
	}
	return fmt.Sprintf("%s (status %d)", e.Message, e.Status)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// IsTransport reports whether err is a transport fault rather than a
// server-reported failure.
func IsTransport(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.transport
}

// IsUnauthorized reports whether the server rejected the credentials
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && !apiErr.transport && apiErr.Status == http.StatusUnauthorized
}

// StatusOf returns the HTTP status carried by err, or 0 if err is not an APIError
func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// MessageOf returns the human-readable message of err or fallback when
// err carries none.
func MessageOf(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}
