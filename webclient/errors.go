package webclient

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode classifies client errors.
type ErrorCode int

const (
	// ErrCodeInvalidRequest indicates the request could not be built
	// (bad URI template, body on a bodiless method, malformed input).
	ErrCodeInvalidRequest ErrorCode = iota
	// ErrCodeUnsupportedMedia indicates no codec matched the payload type
	// and media type.
	ErrCodeUnsupportedMedia
	// ErrCodeEncode indicates the request body failed to serialize.
	ErrCodeEncode
	// ErrCodeDecode indicates the response body failed to deserialize.
	ErrCodeDecode
	// ErrCodeStatus indicates the response status was mapped to an error.
	ErrCodeStatus
	// ErrCodeConnector indicates the connector failed to perform the
	// exchange (refused, DNS, broken transport).
	ErrCodeConnector
	// ErrCodeTimeout indicates a request or connection timeout.
	ErrCodeTimeout
)

// String returns the error code name.
func (c ErrorCode) String() string {
	switch c {
	case ErrCodeInvalidRequest:
		return "invalid_request"
	case ErrCodeUnsupportedMedia:
		return "unsupported_media"
	case ErrCodeEncode:
		return "encode"
	case ErrCodeDecode:
		return "decode"
	case ErrCodeStatus:
		return "status"
	case ErrCodeConnector:
		return "connector"
	case ErrCodeTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// Error is a structured client error with classification.
type Error struct {
	// StatusCode is the HTTP status code (0 before a response exists).
	StatusCode int
	// Code classifies the error.
	Code ErrorCode
	// Message describes the error.
	Message string
	// Retryable indicates whether the operation can be retried.
	Retryable bool
	// Header holds the response headers for status errors (may be nil).
	Header http.Header
	// Body is the raw response body for status errors (may be nil).
	Body []byte
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("webclient: %s (HTTP %d): %s", e.Code, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("webclient: %s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewInvalidRequestError creates a request construction error.
func NewInvalidRequestError(msg string) *Error {
	return &Error{
		Code:    ErrCodeInvalidRequest,
		Message: msg,
	}
}

// NewUnsupportedMediaError creates a codec lookup failure.
func NewUnsupportedMediaError(msg string, err error) *Error {
	return &Error{
		Code:    ErrCodeUnsupportedMedia,
		Message: msg,
		Err:     err,
	}
}

// NewEncodeError creates a body serialization error.
func NewEncodeError(err error) *Error {
	return &Error{
		Code:    ErrCodeEncode,
		Message: err.Error(),
		Err:     err,
	}
}

// NewDecodeError creates a body deserialization error.
func NewDecodeError(err error) *Error {
	return &Error{
		Code:    ErrCodeDecode,
		Message: err.Error(),
		Err:     err,
	}
}

// NewStatusError creates an error from a mapped response status. Retryable
// follows the usual classification: 429 and 5xx can be retried, other 4xx
// cannot.
func NewStatusError(statusCode int, header http.Header, body []byte) *Error {
	return &Error{
		StatusCode: statusCode,
		Code:       ErrCodeStatus,
		Message:    "HTTP " + http.StatusText(statusCode),
		Retryable:  statusCode == http.StatusTooManyRequests || statusCode >= 500,
		Header:     header,
		Body:       body,
	}
}

// NewConnectorError creates a transport-level error.
func NewConnectorError(err error) *Error {
	return &Error{
		Code:      ErrCodeConnector,
		Message:   err.Error(),
		Retryable: true,
		Err:       err,
	}
}

// NewTimeoutError creates a timeout error.
func NewTimeoutError(err error) *Error {
	return &Error{
		Code:      ErrCodeTimeout,
		Message:   err.Error(),
		Retryable: true,
		Err:       err,
	}
}

// IsInvalidRequest checks if an error is a request construction error.
func IsInvalidRequest(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == ErrCodeInvalidRequest
}

// IsUnsupportedMedia checks if an error is a codec lookup failure.
func IsUnsupportedMedia(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == ErrCodeUnsupportedMedia
}

// IsEncode checks if an error is a body serialization error.
func IsEncode(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == ErrCodeEncode
}

// IsDecode checks if an error is a body deserialization error.
func IsDecode(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == ErrCodeDecode
}

// IsStatus checks if an error is a mapped status error.
func IsStatus(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == ErrCodeStatus
}

// StatusOf returns the status code carried by a mapped status error, or 0.
func StatusOf(err error) int {
	var e *Error
	if errors.As(err, &e) && e.Code == ErrCodeStatus {
		return e.StatusCode
	}
	return 0
}

// IsConnector checks if an error is a transport-level error.
func IsConnector(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == ErrCodeConnector
}

// IsTimeout checks if an error is a timeout error.
func IsTimeout(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == ErrCodeTimeout
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Retryable
}
