package core

import "errors"

// ErrorCode is a stable, machine-readable identifier carried by APIError.
type ErrorCode string

// Error code constants.
const (
	// ErrCodeUnknown indicates an unmapped HTTP status.
	ErrCodeUnknown ErrorCode = "UNKNOWN"
	// ErrCodeNetwork indicates a network connectivity failure.
	ErrCodeNetwork ErrorCode = "NETWORK_ERROR"
	// ErrCodeTimeout indicates the request exceeded its deadline.
	ErrCodeTimeout ErrorCode = "TIMEOUT"
	// ErrCodeRateLimit indicates the rate limit was exceeded.
	ErrCodeRateLimit ErrorCode = "RATE_LIMIT"
	// ErrCodeAuth indicates authentication or authorization failure.
	ErrCodeAuth ErrorCode = "AUTH_ERROR"
	// ErrCodeBadRequest indicates invalid request parameters.
	ErrCodeBadRequest ErrorCode = "BAD_REQUEST"
	// ErrCodeNotFound indicates the requested resource was not found.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
	// ErrCodeServerError indicates a server-side error occurred.
	ErrCodeServerError ErrorCode = "SERVER_ERROR"

	// Body-level errors
	ErrCodeResultError ErrorCode = "RESULT_ERROR"
	ErrCodeDecode      ErrorCode = "DECODE_ERROR"
)

func codeForType(t ErrorType) ErrorCode {
	switch t {
	case ErrorTypeNetwork:
		return ErrCodeNetwork
	case ErrorTypeTimeout:
		return ErrCodeTimeout
	case ErrorTypeRateLimit:
		return ErrCodeRateLimit
	case ErrorTypeAuthentication:
		return ErrCodeAuth
	case ErrorTypeBadRequest:
		return ErrCodeBadRequest
	case ErrorTypeNotFound:
		return ErrCodeNotFound
	case ErrorTypeServerError:
		return ErrCodeServerError
	default:
		return ErrCodeUnknown
	}
}

// WithCode returns the error with the specified code.
func (e *APIError) WithCode(code ErrorCode) *APIError {
	e.Code = string(code)
	return e
}

// IsErrorCode checks if the error matches the specified error code.
// It extracts the API error and compares its code field against the provided ErrorCode.
func IsErrorCode(err error, code ErrorCode) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return ErrorCode(apiErr.Code) == code
	}
	return false
}
