package jsonapikit

import (
	"net/http"
)

// Middleware wraps the network call of every admitted request.
type Middleware func(req *http.Request, next RoundTripper) (*http.Response, error)

// RoundTripper represents the HTTP transport interface
type RoundTripper interface {
	RoundTrip(*http.Request) (*http.Response, error)
}

// Option represents a configuration option
type Option func(*Client)

// RoundTripperFunc is a helper type for middleware
type RoundTripperFunc func(*http.Request) (*http.Response, error)

func (f RoundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

// Method is an HTTP verb supported by the execution core.
type Method string

const (
	MethodGet    Method = http.MethodGet
	MethodPost   Method = http.MethodPost
	MethodPut    Method = http.MethodPut
	MethodDelete Method = http.MethodDelete
)

// ContentType is the encoding of a request body.
type ContentType string

const (
	ContentTypeJSON           ContentType = "application/json;charset=UTF-8"
	ContentTypeFormURLEncoded ContentType = "application/x-www-form-urlencoded"
	ContentTypeJSONAPI        ContentType = "application/vnd.api+json"
)

// EmptyBody marks a response type whose contract is an empty body. When the
// server returns no bytes, the zero value is produced without parsing.
type EmptyBody interface {
	emptyBody()
}

// Empty is the stock empty-bodied response type.
type Empty struct{}

func (Empty) emptyBody() {}

// Callers declare their own empty-bodied types by embedding Empty.
var _ EmptyBody = Empty{}
