package jsonapikit

import (
	"encoding/json"
	"errors"
	"net/url"
)

// Delegate supplies runtime configuration to a Client and receives
// authentication events from it. Implementations must be safe for
// concurrent use.
type Delegate interface {
	// APIEndpoint is the base URL relative resource paths resolve against.
	APIEndpoint() *url.URL
	// AccessToken is sent as a bearer token. Custom schemes go in AdditionalHeaders.
	AccessToken() string
	// IsTokenExpired makes every call fail with ErrAuthExpired before dispatch.
	IsTokenExpired() bool
	// PaginationParams names the page index and size query keys. Nil disables
	// automatic pagination parameters.
	PaginationParams() *PaginationParams
	// AdditionalHeaders override the default headers on key collision.
	AdditionalHeaders() map[string]string
	// DecodeErrors decodes an error response body into domain errors.
	DecodeErrors(body []byte) ([]DomainError, error)
	// DidReceiveUnauthorized is called after a 401 response.
	DidReceiveUnauthorized()
	// DidReceiveForbidden is called after a 403 response.
	DidReceiveForbidden()
}

// PaginationParams names the query keys for the page position and page size.
type PaginationParams struct {
	IndexKey string
	SizeKey  string
}

// Pagination presets.
var (
	PaginationOffsetLimit = PaginationParams{IndexKey: "offset", SizeKey: "limit"}
	PaginationCursorLimit = PaginationParams{IndexKey: "cursor", SizeKey: "limit"}
	PaginationIndexSize   = PaginationParams{IndexKey: "index", SizeKey: "size"}
	PaginationPageSize    = PaginationParams{IndexKey: "page", SizeKey: "size"}

	PaginationDefault = PaginationOffsetLimit
)

// PaginationPreset returns a preset by name: "offset", "cursor", "index" or "page".
func PaginationPreset(name string) (PaginationParams, bool) {
	switch name {
	case "offset", "offset_limit", "":
		return PaginationOffsetLimit, true
	case "cursor", "cursor_limit":
		return PaginationCursorLimit, true
	case "index", "index_size":
		return PaginationIndexSize, true
	case "page", "page_size":
		return PaginationPageSize, true
	}
	return PaginationParams{}, false
}

var errEmptyErrorDocument = errors.New("jsonapikit: error document has no errors")

// DecodeJSONAPIErrors decodes a JSON:API error document. A document without
// entries is treated as undecodable.
func DecodeJSONAPIErrors(body []byte) ([]DomainError, error) {
	var doc ErrorDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, err
	}
	if len(doc.Errors) == 0 {
		return nil, errEmptyErrorDocument
	}
	return doc.Errors, nil
}

// DecodePlainError decodes {"code": ..., "message": ...} style error bodies
// used by plain REST backends.
func DecodePlainError(body []byte) ([]DomainError, error) {
	var plain struct {
		Status  any    `json:"status"`
		Code    any    `json:"code"`
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &plain); err != nil {
		return nil, err
	}
	if plain.Message == "" && plain.Error == "" {
		return nil, errEmptyErrorDocument
	}
	return []DomainError{{
		Status: FormatQueryValue(plain.Status),
		Code:   FormatQueryValue(plain.Code),
		Title:  plain.Error,
		Detail: plain.Message,
	}}, nil
}

// StaticDelegate is a Delegate backed by fixed values and optional hooks.
type StaticDelegate struct {
	Endpoint     *url.URL
	Token        string
	Expired      func() bool
	Pagination   *PaginationParams
	Headers      map[string]string
	ErrorDecoder func([]byte) ([]DomainError, error)
	Unauthorized func()
	Forbidden    func()
}

// NewStaticDelegate parses endpoint and returns a delegate sending token.
func NewStaticDelegate(endpoint, token string) (*StaticDelegate, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, err
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, &ClientError{Type: ErrorTypeLocal, Message: "endpoint must be an absolute URL: " + endpoint}
	}
	p := PaginationDefault
	return &StaticDelegate{Endpoint: u, Token: token, Pagination: &p}, nil
}

func (d *StaticDelegate) APIEndpoint() *url.URL { return d.Endpoint }

func (d *StaticDelegate) AccessToken() string { return d.Token }

func (d *StaticDelegate) IsTokenExpired() bool {
	return d.Expired != nil && d.Expired()
}

func (d *StaticDelegate) PaginationParams() *PaginationParams { return d.Pagination }

func (d *StaticDelegate) AdditionalHeaders() map[string]string { return d.Headers }

func (d *StaticDelegate) DecodeErrors(body []byte) ([]DomainError, error) {
	if d.ErrorDecoder != nil {
		return d.ErrorDecoder(body)
	}
	return DecodeJSONAPIErrors(body)
}

func (d *StaticDelegate) DidReceiveUnauthorized() {
	if d.Unauthorized != nil {
		d.Unauthorized()
	}
}

func (d *StaticDelegate) DidReceiveForbidden() {
	if d.Forbidden != nil {
		d.Forbidden()
	}
}
