package jsonapikit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// DefaultTimeout bounds every request, decoding included.
const DefaultTimeout = 10 * time.Second

// Client executes requests against a JSON:API or REST backend configured by
// a Delegate. Identical requests (same fingerprint) never run concurrently:
// the second one fails with ErrDuplicateInFlight. It is safe for concurrent use.
type Client struct {
	mu       sync.RWMutex
	delegate Delegate

	httpClient      *http.Client
	timeout         time.Duration
	registry        *Registry
	middleware      []Middleware
	metrics         *MetricsCollector
	debug           *DebugConfig
	logger          Logger
	inFlight        *InFlightTracker
	fingerprint     FingerprintFunc
	maxResolveDepth int
	validationError error
}

// New constructs a Client for delegate using the provided functional options.
// A best effort validation is performed; call IsValid / ValidationError for errors.
func New(delegate Delegate, options ...Option) *Client {
	client := &Client{
		delegate:        delegate,
		httpClient:      &http.Client{},
		timeout:         DefaultTimeout,
		registry:        defaultRegistry,
		middleware:      []Middleware{},
		metrics:         nil,
		debug:           DefaultDebugConfig(),
		logger:          nil,
		inFlight:        NewInFlightTracker(),
		fingerprint:     DefaultFingerprint,
		maxResolveDepth: DefaultMaxResolveDepth,
	}

	for _, option := range options {
		option(client)
	}

	if err := client.ValidateConfiguration(); err != nil {
		client.validationError = err
	}

	return client
}

var (
	sharedMu sync.Mutex
	shared   *Client
)

// Configure creates the process-wide client returned by Shared. Calling it
// again is a no-op that logs a warning; use ConfigureForce to swap the delegate.
func Configure(delegate Delegate, options ...Option) *Client {
	sharedMu.Lock()
	defer sharedMu.Unlock()

	if shared != nil {
		shared.warnLogger().Warn("Duplicate configure of the shared client ignored")
		return shared
	}
	shared = New(delegate, options...)
	return shared
}

// ConfigureForce replaces the delegate of the shared client, creating the
// client first if needed. In-flight bookkeeping is kept.
func ConfigureForce(delegate Delegate, options ...Option) *Client {
	sharedMu.Lock()
	defer sharedMu.Unlock()

	if shared == nil {
		shared = New(delegate, options...)
		return shared
	}
	shared.warnLogger().Info("Forced override of the shared client configuration")
	shared.SetDelegate(delegate)
	return shared
}

// Shared returns the client created by Configure, or nil before that.
// Operations on a nil *Client fail with ErrNotConfigured.
func Shared() *Client {
	sharedMu.Lock()
	defer sharedMu.Unlock()
	return shared
}

// Delegate returns the current delegate.
func (c *Client) Delegate() Delegate {
	if c == nil {
		return nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.delegate
}

// SetDelegate swaps the delegate for subsequent requests.
func (c *Client) SetDelegate(delegate Delegate) {
	c.mu.Lock()
	c.delegate = delegate
	c.mu.Unlock()
}

// Registry returns the registry used to decode included resources.
func (c *Client) Registry() *Registry {
	return c.registry
}

// Metrics returns the configured collector, which may be nil.
func (c *Client) Metrics() *MetricsCollector {
	return c.metrics
}

// CleanAllRequests releases every in-flight fingerprint, for example after
// the signed-in user changes.
func (c *Client) CleanAllRequests() {
	if c == nil {
		return
	}
	c.inFlight.Clean()
}

// InFlight returns the number of admitted requests still running.
func (c *Client) InFlight() int {
	if c == nil {
		return 0
	}
	return c.inFlight.Len()
}

// Do executes r and decodes a 2xx body into T. Response documents decode
// their included resources with the client's registry. Types embedding
// Empty accept an empty body.
func Do[T any](ctx context.Context, c *Client, r *Request) (T, error) {
	var out T
	err := c.execute(ctx, r, func(body []byte) error {
		v, err := decodeBody[T](c, body)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}

// DoBool executes r and reports success for any 2xx status without decoding.
func DoBool(ctx context.Context, c *Client, r *Request) (bool, error) {
	err := c.execute(ctx, r, func([]byte) error { return nil })
	if err != nil {
		return false, err
	}
	return true, nil
}

// Fetch GETs path relative to the delegate's endpoint and decodes into T.
func Fetch[T any](ctx context.Context, c *Client, path string, query QueryParams) (T, error) {
	var zero T
	u, err := c.URLFromPath(path, query)
	if err != nil {
		return zero, err
	}
	return Do[T](ctx, c, NewGetRequest(u))
}

// Special runs a call that does not follow the resource conventions. Body is
// sent as JSON for POST and PUT and ignored otherwise.
func Special[T any](ctx context.Context, c *Client, method Method, path string, query QueryParams, body []byte) (T, error) {
	var zero T
	u, err := c.URLFromPath(path, query)
	if err != nil {
		return zero, err
	}

	var r *Request
	switch method {
	case MethodGet:
		r = NewGetRequest(u)
	case MethodPost:
		r = NewPostRequest(u, body, ContentTypeJSON)
	case MethodPut:
		r = NewPutRequest(u, body, ContentTypeJSON)
	case MethodDelete:
		r = NewDeleteRequest(u)
	default:
		return zero, &ClientError{Type: ErrorTypeLocal, Message: fmt.Sprintf("unsupported method %q", method)}
	}
	return Do[T](ctx, c, r)
}

var errEmptyBody = errors.New("empty response body")

func decodeBody[T any](c *Client, body []byte) (T, error) {
	var out T
	if _, ok := any(out).(EmptyBody); ok {
		return out, nil
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return out, errEmptyBody
	}

	if dd, ok := any(&out).(documentDecoder); ok {
		if err := dd.decodeDocument(body, c.registry); err != nil {
			return out, err
		}
		return out, nil
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return out, err
	}
	return out, nil
}

// execute runs the admission and dispatch steps shared by every call.
// onSuccess decodes a 2xx body; its error is classified here.
func (c *Client) execute(ctx context.Context, r *Request, onSuccess func(body []byte) error) error {
	if c == nil {
		return ErrNotConfigured
	}
	delegate := c.Delegate()
	if delegate == nil {
		return ErrNotConfigured
	}
	if c.validationError != nil {
		return c.validationError
	}
	if r == nil || r.URL == nil {
		return &ClientError{Type: ErrorTypeLocal, Message: "request has no URL"}
	}
	if ctx == nil {
		ctx = context.Background()
	}

	start := time.Now()
	method := string(r.Method)
	endpoint := getEndpointFromURL(r.URL)

	var requestID string
	if c.debug != nil && c.debug.Enabled && c.debug.RequestIDGen != nil {
		requestID = c.debug.RequestIDGen()
	}

	if delegate.IsTokenExpired() {
		if c.metrics != nil {
			c.metrics.RecordError(ErrorTypeAuthExpired, method, endpoint)
		}
		if c.debugEnabled() {
			c.logger.Warn("Access token expired, request not sent", "requestID", requestID, "url", r.URL.String())
		}
		return c.createClientError(ErrorTypeAuthExpired, "access token is expired", nil, requestID, r, 0, start)
	}

	fingerprint := c.fingerprint(r)
	err := c.inFlight.Run(fingerprint, func() error {
		return c.dispatch(ctx, delegate, r, requestID, start, onSuccess)
	})
	if errors.Is(err, ErrDuplicateInFlight) {
		if c.metrics != nil {
			c.metrics.RecordDuplicateRejection(method, endpoint)
			c.metrics.RecordError(ErrorTypeDuplicateInFlight, method, endpoint)
		}
		if c.debugEnabled() {
			c.logger.Debug("Duplicate request rejected", "requestID", requestID, "fingerprint", fingerprint)
		}
		return c.createClientError(ErrorTypeDuplicateInFlight, "the same request is in progress", nil, requestID, r, 0, start)
	}
	return err
}

func (c *Client) dispatch(ctx context.Context, delegate Delegate, r *Request, requestID string, start time.Time, onSuccess func([]byte) error) error {
	method := string(r.Method)
	endpoint := getEndpointFromURL(r.URL)

	if c.metrics != nil {
		c.metrics.RecordRequestStart(method, endpoint)
		defer c.metrics.RecordRequestEnd(method, endpoint)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := c.newHTTPRequest(ctx, delegate, r)
	if err != nil {
		return c.createClientError(ErrorTypeLocal, "failed to build request", err, requestID, r, 0, start)
	}

	if c.debugEnabled() && c.debug.LogRequests {
		c.logger.Debug("Starting request", "requestID", requestID, "method", method, "url", r.URL.String(), "headers", headerSummary(req.Header))
		if c.debug.LogBodies && len(r.Body) > 0 {
			c.logger.Debug("Request body", "requestID", requestID, "body", string(r.Body))
		}
	}

	resp, err := c.executeMiddleware(req)
	if err != nil {
		if c.metrics != nil {
			c.metrics.RecordError(ErrorTypeTransport, method, endpoint)
		}
		if c.debugEnabled() {
			c.logger.Warn("Request failed", "requestID", requestID, "error", err.Error())
		}
		return c.createClientError(ErrorTypeTransport, "network request failed", err, requestID, r, 0, start)
	}

	body, err := readBody(resp)
	if err != nil {
		if c.metrics != nil {
			c.metrics.RecordError(ErrorTypeTransport, method, endpoint)
		}
		return c.createClientError(ErrorTypeTransport, "failed to read response body", err, requestID, r, resp.StatusCode, start)
	}

	if c.metrics != nil {
		c.metrics.RecordRequest(method, endpoint, resp.StatusCode, time.Since(start))
	}
	if c.debugEnabled() && c.debug.LogBodies {
		c.logger.Debug("Response body", "requestID", requestID, "statusCode", resp.StatusCode, "body", string(body))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.errorFromResponse(delegate, r, resp.StatusCode, body, requestID, start)
	}

	decodeErr := onSuccess(body)
	if decodeErr == nil {
		return nil
	}

	if c.debugEnabled() && c.debug.LogDecode {
		c.logger.Debug("Decode failed", "requestID", requestID, "error", decodeErr.Error())
	}

	var unknown *UnknownResourceTypeError
	if errors.As(decodeErr, &unknown) {
		if c.metrics != nil {
			c.metrics.RecordError(ErrorTypeLocal, method, endpoint)
		}
		return c.createClientError(ErrorTypeLocal, "unknown resource type in response", decodeErr, requestID, r, resp.StatusCode, start)
	}

	if domainErrs, err := delegate.DecodeErrors(body); err == nil {
		if c.metrics != nil {
			c.metrics.RecordError(ErrorTypeServerDomain, method, endpoint)
		}
		clientErr := c.createClientError(ErrorTypeServerDomain, "server returned errors", nil, requestID, r, resp.StatusCode, start)
		clientErr.Errors = domainErrs
		return clientErr
	}

	if c.metrics != nil {
		c.metrics.RecordError(ErrorTypeDecodeFailure, method, endpoint)
	}
	return c.createClientError(ErrorTypeDecodeFailure, "failed to decode response", decodeErr, requestID, r, resp.StatusCode, start)
}

// errorFromResponse classifies a non-2xx response. 401 and 403 also notify
// the delegate without waiting for it.
func (c *Client) errorFromResponse(delegate Delegate, r *Request, statusCode int, body []byte, requestID string, start time.Time) error {
	method := string(r.Method)
	endpoint := getEndpointFromURL(r.URL)

	switch statusCode {
	case http.StatusUnauthorized:
		if c.metrics != nil {
			c.metrics.RecordAuthNotification(statusCode)
		}
		go delegate.DidReceiveUnauthorized()
	case http.StatusForbidden:
		if c.metrics != nil {
			c.metrics.RecordAuthNotification(statusCode)
		}
		go delegate.DidReceiveForbidden()
	}

	domainErrs, err := delegate.DecodeErrors(body)
	if err == nil {
		if c.metrics != nil {
			c.metrics.RecordError(ErrorTypeServerDomain, method, endpoint)
		}
		if c.debugEnabled() {
			c.logger.Error("Server returned errors", "requestID", requestID, "statusCode", statusCode, "errors", len(domainErrs))
		}
		clientErr := c.createClientError(ErrorTypeServerDomain, "server returned errors", nil, requestID, r, statusCode, start)
		clientErr.Errors = domainErrs
		return clientErr
	}

	if c.metrics != nil {
		c.metrics.RecordError(ErrorTypeServerOpaque, method, endpoint)
	}
	if c.debugEnabled() {
		c.logger.Error("Unable to decode error response", "requestID", requestID, "statusCode", statusCode, "body", truncate(body, 512))
	}
	return c.createClientError(ErrorTypeServerOpaque, "unable to decode error response from server", err, requestID, r, statusCode, start)
}

func (c *Client) executeMiddleware(req *http.Request) (*http.Response, error) {
	if len(c.middleware) == 0 {
		return c.httpClient.Do(req)
	}

	current := RoundTripperFunc(c.httpClient.Do)

	for i := len(c.middleware) - 1; i >= 0; i-- {
		middleware := c.middleware[i]
		next := current
		current = RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			return middleware(r, next)
		})
	}

	return current.RoundTrip(req)
}

func (c *Client) createClientError(errorType, message string, cause error, requestID string, r *Request, statusCode int, start time.Time) *ClientError {
	clientErr := &ClientError{
		Type:       errorType,
		Message:    message,
		Cause:      cause,
		RequestID:  requestID,
		Method:     string(r.Method),
		StatusCode: statusCode,
		Timestamp:  time.Now(),
		Duration:   time.Since(start),
	}
	if r.URL != nil {
		clientErr.URL = r.URL.String()
	}
	return clientErr
}

func (c *Client) debugEnabled() bool {
	return c.debug != nil && c.debug.Enabled && c.logger != nil
}

func (c *Client) warnLogger() Logger {
	if c.logger != nil {
		return c.logger
	}
	return NewSimpleLogger()
}

// IsValid reports whether configuration validation passed at construction.
func (c *Client) IsValid() bool {
	return c.validationError == nil
}

// ValidationError returns the configuration validation error, if any.
func (c *Client) ValidationError() error {
	return c.validationError
}

func getEndpointFromURL(u *url.URL) string {
	if u == nil {
		return "unknown"
	}

	var builder strings.Builder
	builder.WriteString(u.Host)

	if u.Path != "" && u.Path != "/" {
		builder.WriteString(u.Path)
	} else {
		builder.WriteByte('/')
	}

	return builder.String()
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
