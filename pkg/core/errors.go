package core

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrorType represents the category of a failure.
type ErrorType int

// Error type constants categorize errors for proper handling.
const (
	// ErrorTypeUnknown indicates an unclassified error.
	ErrorTypeUnknown ErrorType = iota
	// ErrorTypeConfiguration indicates a request that cannot be built from its parameters.
	ErrorTypeConfiguration
	// ErrorTypeNetwork indicates a network connectivity issue.
	ErrorTypeNetwork
	// ErrorTypeTimeout indicates the request exceeded its deadline.
	ErrorTypeTimeout
	// ErrorTypeRateLimit indicates the provider rejected the request for exceeding its quota.
	ErrorTypeRateLimit
	// ErrorTypeAuthentication indicates a missing, invalid or unauthorized API key.
	ErrorTypeAuthentication
	// ErrorTypeBadRequest indicates the provider rejected the request parameters.
	ErrorTypeBadRequest
	// ErrorTypeNotFound indicates the endpoint or instrument does not exist.
	ErrorTypeNotFound
	// ErrorTypeServerError indicates a server-side error.
	ErrorTypeServerError
)

// String returns the string representation of the error type.
func (t ErrorType) String() string {
	return [...]string{
		"UNKNOWN",
		"CONFIGURATION",
		"NETWORK",
		"TIMEOUT",
		"RATE_LIMIT",
		"AUTHENTICATION",
		"BAD_REQUEST",
		"NOT_FOUND",
		"SERVER_ERROR",
	}[t]
}

// Sentinel errors for the two error kinds surfaced by data requests.
var (
	// ErrConfiguration matches every error raised while assembling a request.
	ErrConfiguration = errors.New("configuration error")
	// ErrTransport matches every error raised while talking to the provider.
	ErrTransport = errors.New("transport error")
	// ErrClientClosed is returned when attempting to use a closed client.
	ErrClientClosed = errors.New("client is closed")
)

// MissingParameterError reports a URL placeholder without a usable value.
type MissingParameterError struct {
	// Name is the placeholder name, e.g. "exchange".
	Name string
	// Template is the URL template being resolved.
	Template string
}

func (e *MissingParameterError) Error() string {
	return fmt.Sprintf("missing required parameter %q for %s", e.Name, e.Template)
}

// Is makes errors.Is(err, ErrConfiguration) hold.
func (e *MissingParameterError) Is(target error) bool {
	return target == ErrConfiguration
}

// InvalidParameterError reports a parameter value that cannot be converted for the wire.
type InvalidParameterError struct {
	Name  string
	Value any
	Err   error
}

func (e *InvalidParameterError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid parameter %s=%v: %v", e.Name, e.Value, e.Err)
	}
	return fmt.Sprintf("invalid parameter %s=%v", e.Name, e.Value)
}

func (e *InvalidParameterError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrConfiguration) hold.
func (e *InvalidParameterError) Is(target error) bool {
	return target == ErrConfiguration
}

// APIError represents a failed exchange with the provider: a non-2xx response, an
// error result in the body, or a network failure.
type APIError struct {
	// Type categorizes the error for programmatic handling.
	Type ErrorType `json:"type"`
	// StatusCode is the HTTP status code, zero for network failures.
	StatusCode int `json:"status_code"`
	// Code is a stable ErrorCode.
	Code string `json:"code"`
	// Message is the provider message or response body.
	Message string `json:"message"`
	// URL is the request URL that failed.
	URL string `json:"url"`
	// Timestamp is when the error occurred.
	Timestamp time.Time `json:"timestamp"`
	// Err is the underlying transport error, if any.
	Err error `json:"-"`
}

// Error returns a formatted string with error type, status code and message.
func (e *APIError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s: %s: %s", e.Type, e.URL, e.Message)
	}
	return fmt.Sprintf("%s (%d/%s): %s: %s", e.Type, e.StatusCode, e.Code, e.URL, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrTransport) hold.
func (e *APIError) Is(target error) bool {
	return target == ErrTransport
}

// NewAPIError creates an APIError for an HTTP response, typed from its status code.
// The timestamp is automatically set to the current time.
func NewAPIError(url string, statusCode int, message string) *APIError {
	errorType := StatusErrorType(statusCode)
	return &APIError{
		Type:       errorType,
		StatusCode: statusCode,
		Code:       string(codeForType(errorType)),
		Message:    message,
		URL:        url,
		Timestamp:  time.Now(),
	}
}

// NewNetworkError wraps a transport failure that produced no HTTP response.
func NewNetworkError(url string, err error) *APIError {
	errorType := ErrorTypeNetwork
	if errors.Is(err, context.DeadlineExceeded) {
		errorType = ErrorTypeTimeout
	}
	return &APIError{
		Type:      errorType,
		Code:      string(codeForType(errorType)),
		Message:   err.Error(),
		URL:       url,
		Timestamp: time.Now(),
		Err:       err,
	}
}

// StatusErrorType maps an HTTP status code to an ErrorType.
func StatusErrorType(statusCode int) ErrorType {
	switch {
	case statusCode >= 500:
		return ErrorTypeServerError
	case statusCode == http.StatusTooManyRequests:
		return ErrorTypeRateLimit
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return ErrorTypeAuthentication
	case statusCode == http.StatusBadRequest:
		return ErrorTypeBadRequest
	case statusCode == http.StatusNotFound:
		return ErrorTypeNotFound
	default:
		return ErrorTypeUnknown
	}
}

// EmptyResultWarning describes a valid query that returned no records.
// It is reported alongside a successful result, never returned as an error.
type EmptyResultWarning struct {
	Product Product `json:"product"`
	URL     string  `json:"url"`
	// Query is the resolved query: path and query-string parameters, plus the
	// continuation token of the last page when one was sent.
	Query Params `json:"query"`
	// Notice carries product-specific availability hints.
	Notice string `json:"notice,omitempty"`
}

func (w *EmptyResultWarning) Error() string {
	msg := fmt.Sprintf("no data was found for the time range selected: %s", w.Query)
	if w.URL != "" {
		msg += " at " + w.URL
	}
	if w.Notice != "" {
		msg += " (" + w.Notice + ")"
	}
	return msg
}

// IsConfigurationError returns true if the request could not be assembled.
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrConfiguration)
}

// IsTransportError returns true if the provider could not be reached or answered with an error.
func IsTransportError(err error) bool {
	return errors.Is(err, ErrTransport)
}

// IsRateLimitError returns true if the provider rejected the request for exceeding its quota.
func IsRateLimitError(err error) bool {
	return hasType(err, ErrorTypeRateLimit)
}

// IsAuthenticationError returns true if the API key was missing or refused.
// Authentication errors require credential validation and are not retryable.
func IsAuthenticationError(err error) bool {
	return hasType(err, ErrorTypeAuthentication)
}

// IsNotFoundError returns true if the endpoint or instrument does not exist.
func IsNotFoundError(err error) bool {
	return hasType(err, ErrorTypeNotFound)
}

func hasType(err error, t ErrorType) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Type == t
	}
	return false
}
