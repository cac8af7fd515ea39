package jsonapikit

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// Request is a prepared call. Body is nil for GET and DELETE.
type Request struct {
	Method      Method
	URL         *url.URL
	Body        []byte
	ContentType ContentType
	// Header overrides both the default and the delegate headers.
	Header http.Header
}

// NewGetRequest prepares a GET.
func NewGetRequest(u *url.URL) *Request {
	return &Request{Method: MethodGet, URL: u}
}

// NewDeleteRequest prepares a DELETE.
func NewDeleteRequest(u *url.URL) *Request {
	return &Request{Method: MethodDelete, URL: u}
}

// NewPostRequest prepares a POST. An empty contentType means ContentTypeJSON.
func NewPostRequest(u *url.URL, body []byte, contentType ContentType) *Request {
	return &Request{Method: MethodPost, URL: u, Body: nonNilBody(body), ContentType: contentType}
}

// NewPutRequest prepares a PUT. An empty contentType means ContentTypeJSON.
func NewPutRequest(u *url.URL, body []byte, contentType ContentType) *Request {
	return &Request{Method: MethodPut, URL: u, Body: nonNilBody(body), ContentType: contentType}
}

func nonNilBody(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	return b
}

// JSONBody encodes v for a request body. A nil v encodes as an empty object.
func JSONBody(v any) ([]byte, error) {
	if v == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(v)
}

// FormBody encodes params as application/x-www-form-urlencoded.
func FormBody(params QueryParams) []byte {
	return []byte(params.Encode())
}

// ResolveURL resolves path against endpoint and appends query in order.
func ResolveURL(endpoint *url.URL, path string, query QueryParams) (*url.URL, error) {
	if endpoint == nil {
		return nil, &ClientError{Type: ErrorTypeLocal, Message: "api endpoint is not set"}
	}
	ref, err := url.Parse(path)
	if err != nil {
		return nil, &ClientError{Type: ErrorTypeLocal, Message: "invalid path " + path, Cause: err}
	}
	u := endpoint.ResolveReference(ref)

	if encoded := query.Encode(); encoded != "" {
		if u.RawQuery == "" {
			u.RawQuery = encoded
		} else {
			u.RawQuery += "&" + encoded
		}
	}
	return u, nil
}

// URLFromPath resolves path against the delegate's endpoint.
func (c *Client) URLFromPath(path string, query QueryParams) (*url.URL, error) {
	delegate := c.Delegate()
	if delegate == nil {
		return nil, ErrNotConfigured
	}
	return ResolveURL(delegate.APIEndpoint(), path, query)
}

func (c *Client) newHTTPRequest(ctx context.Context, delegate Delegate, r *Request) (*http.Request, error) {
	var body io.Reader
	if r.Body != nil {
		body = bytes.NewReader(r.Body)
	}

	req, err := http.NewRequestWithContext(ctx, string(r.Method), r.URL.String(), body)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Authorization", "Bearer "+delegate.AccessToken())
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Encoding", "gzip, deflate, br")
	req.Header.Set("Cache-Control", "no-cache")

	if r.Method == MethodPost || r.Method == MethodPut {
		ct := r.ContentType
		if ct == "" {
			ct = ContentTypeJSON
		}
		req.Header.Set("Content-Type", string(ct))
	}

	for k, v := range delegate.AdditionalHeaders() {
		req.Header.Set(k, v)
	}
	for k, vs := range r.Header {
		req.Header.Del(k)
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	return req, nil
}

func headerSummary(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k := range h {
		if strings.EqualFold(k, "Authorization") {
			out[k] = "<redacted>"
			continue
		}
		out[k] = h.Get(k)
	}
	return out
}
