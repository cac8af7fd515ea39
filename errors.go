package jsonapikit

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Error types reported in ClientError.Type.
const (
	// ErrorTypeLocal reports misuse: unconfigured client, missing path,
	// unknown resource type, invalid options.
	ErrorTypeLocal = "Local"
	// ErrorTypeAuthExpired reports an expired access token detected before dispatch.
	ErrorTypeAuthExpired = "AuthExpired"
	// ErrorTypeDuplicateInFlight reports that an identical request is already running.
	ErrorTypeDuplicateInFlight = "DuplicateInFlight"
	// ErrorTypeTransport reports connectivity failures and timeouts.
	ErrorTypeTransport = "Transport"
	// ErrorTypeServerDomain reports a decoded JSON:API error document.
	ErrorTypeServerDomain = "ServerDomain"
	// ErrorTypeServerOpaque reports an error response whose body could not be decoded.
	ErrorTypeServerOpaque = "ServerOpaque"
	// ErrorTypeDecodeFailure reports a success response that did not decode as the expected type.
	ErrorTypeDecodeFailure = "DecodeFailure"
)

// Sentinel errors, matched by type with errors.Is.
var (
	// ErrNotConfigured is returned when an operation runs without a configured client.
	ErrNotConfigured = &ClientError{Type: ErrorTypeLocal, Message: "jsonapikit: client is not configured"}

	// ErrAuthExpired is returned when the delegate reports an expired token.
	ErrAuthExpired = &ClientError{Type: ErrorTypeAuthExpired, Message: "jsonapikit: access token is expired"}

	// ErrDuplicateInFlight is returned when the same request is already in progress.
	ErrDuplicateInFlight = &ClientError{Type: ErrorTypeDuplicateInFlight, Message: "jsonapikit: the same request is in progress"}

	// ErrNoNextPage is returned when a response offers no valid next link.
	ErrNoNextPage = errors.New("jsonapikit: no next page available")
)

// ClientError is the single error type surfaced by request execution.
type ClientError struct {
	Type       string
	Message    string
	Cause      error
	RequestID  string
	Method     string
	URL        string
	StatusCode int
	// Errors holds the decoded error document for ErrorTypeServerDomain.
	Errors    []DomainError
	Timestamp time.Time
	Duration  time.Duration
}

// Error implements error interface.
func (e *ClientError) Error() string {
	if e == nil {
		return "<nil>"
	}

	msg := fmt.Sprintf("%s: %s", e.Type, e.Message)
	if e.StatusCode > 0 {
		msg = fmt.Sprintf("%s [%d]", msg, e.StatusCode)
	}
	if len(e.Errors) > 0 {
		details := make([]string, 0, len(e.Errors))
		for _, de := range e.Errors {
			details = append(details, de.Error())
		}
		msg = fmt.Sprintf("%s: %s", msg, strings.Join(details, "; "))
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s (%v)", msg, e.Cause)
	}
	if e.RequestID != "" {
		msg = fmt.Sprintf("[%s] %s", e.RequestID, msg)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *ClientError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Is compares error types for errors.Is.
func (e *ClientError) Is(target error) bool {
	if e == nil {
		return false
	}
	if targetErr, ok := target.(*ClientError); ok {
		return e.Type == targetErr.Type
	}
	return false
}

// DebugInfo renders a multi-line string with diagnostic context.
func (e *ClientError) DebugInfo() string {
	if e == nil {
		return "Error: <nil>"
	}
	info := fmt.Sprintf("Error Type: %s\n", e.Type)
	info += fmt.Sprintf("Message: %s\n", e.Message)
	if e.RequestID != "" {
		info += fmt.Sprintf("Request ID: %s\n", e.RequestID)
	}
	if e.Method != "" {
		info += fmt.Sprintf("Method: %s\n", e.Method)
	}
	if e.URL != "" {
		info += fmt.Sprintf("URL: %s\n", e.URL)
	}
	if e.StatusCode > 0 {
		info += fmt.Sprintf("Status Code: %d\n", e.StatusCode)
	}
	for i, de := range e.Errors {
		info += fmt.Sprintf("Server Error %d: %s\n", i+1, de.Error())
	}
	if !e.Timestamp.IsZero() {
		info += fmt.Sprintf("Timestamp: %s\n", e.Timestamp.Format(time.RFC3339))
	}
	if e.Duration > 0 {
		info += fmt.Sprintf("Duration: %v\n", e.Duration)
	}
	if e.Cause != nil {
		info += fmt.Sprintf("Cause: %v\n", e.Cause)
	}
	return info
}

// IsAuthFailure reports whether err is an expired token or a 401/403 response.
func IsAuthFailure(err error) bool {
	var clientErr *ClientError
	if !errors.As(err, &clientErr) {
		return false
	}
	if clientErr.Type == ErrorTypeAuthExpired {
		return true
	}
	return clientErr.StatusCode == 401 || clientErr.StatusCode == 403
}

// StatusCode extracts the HTTP status code carried by err, or -1.
func StatusCode(err error) int {
	var clientErr *ClientError
	if errors.As(err, &clientErr) && clientErr.StatusCode > 0 {
		return clientErr.StatusCode
	}
	return -1
}

// DomainErrors returns the server error list carried by err, if any.
func DomainErrors(err error) []DomainError {
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Errors
	}
	return nil
}

// UnknownResourceTypeError is returned when a wire type name has no
// registered decoder.
type UnknownResourceTypeError struct {
	TypeName string
}

func (e *UnknownResourceTypeError) Error() string {
	return fmt.Sprintf("jsonapikit: unknown resource type %q; register it with RegisterResource", e.TypeName)
}

// ErrorDocument is the JSON:API top-level error envelope.
type ErrorDocument struct {
	Errors []DomainError `json:"errors"`
}

// DomainError is one entry of a JSON:API error document.
// See https://jsonapi.org/format/#errors.
type DomainError struct {
	ID     string     `json:"id,omitempty"`
	Status string     `json:"status,omitempty"`
	Code   string     `json:"code,omitempty"`
	Title  string     `json:"title,omitempty"`
	Detail string     `json:"detail,omitempty"`
	Meta   *ErrorMeta `json:"meta,omitempty"`
}

// ErrorMeta is the meta object servers attach to errors.
type ErrorMeta struct {
	Type      string     `json:"type,omitempty"`
	Path      string     `json:"path,omitempty"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

// StatusValue parses Status as an integer, returning -1 when it is not numeric.
func (e DomainError) StatusValue() int {
	v, err := strconv.Atoi(strings.TrimSpace(e.Status))
	if err != nil {
		return -1
	}
	return v
}

// Error implements error so a DomainError can be returned on its own.
func (e DomainError) Error() string {
	reason := e.Detail
	if reason == "" {
		reason = e.Title
	}
	label := e.Code
	if label == "" {
		label = e.Title
	}
	switch {
	case label != "" && reason != "" && label != reason:
		return fmt.Sprintf("%s: %s", label, reason)
	case reason != "":
		return reason
	case label != "":
		return label
	default:
		return fmt.Sprintf("server error (status %s)", e.Status)
	}
}
