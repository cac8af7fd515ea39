package jsonapikit

import (
	"fmt"
	"net/http"
	"time"
)

// WithHTTPClient sets a custom HTTP client. Its own Timeout is left alone;
// the per-request deadline comes from WithTimeout.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithTimeout sets the per-request deadline (default 10s). The fingerprint
// stays reserved until the deadline passes at the latest.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithRegistry sets the registry used to decode included resources.
func WithRegistry(reg *Registry) Option {
	return func(c *Client) {
		c.registry = reg
	}
}

// WithMiddleware adds middleware to the client
func WithMiddleware(middleware ...Middleware) Option {
	return func(c *Client) {
		c.middleware = append(c.middleware, middleware...)
	}
}

// WithMetrics enables Prometheus metrics collection on a fresh registry.
func WithMetrics() Option {
	return func(c *Client) {
		c.metrics = NewMetricsCollector()
	}
}

// WithMetricsCollector sets a custom metrics collector
func WithMetricsCollector(collector *MetricsCollector) Option {
	return func(c *Client) {
		c.metrics = collector
	}
}

// WithDebug enables debug logging with default configuration
func WithDebug() Option {
	return func(c *Client) {
		if c.debug == nil {
			c.debug = DefaultDebugConfig()
		}
		c.debug.Enabled = true
	}
}

// WithDebugConfig sets custom debug configuration
func WithDebugConfig(config *DebugConfig) Option {
	return func(c *Client) {
		c.debug = config
	}
}

// WithLogger sets a custom logger for debug output
func WithLogger(logger Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithSimpleLogger enables debug logging with a console logger on stderr
func WithSimpleLogger() Option {
	return func(c *Client) {
		if c.debug == nil {
			c.debug = DefaultDebugConfig()
		}
		c.debug.Enabled = true
		c.logger = NewSimpleLogger()
	}
}

// WithRequestIDGenerator sets a custom function for generating request IDs
func WithRequestIDGenerator(gen func() string) Option {
	return func(c *Client) {
		if c.debug == nil {
			c.debug = DefaultDebugConfig()
		}
		c.debug.RequestIDGen = gen
	}
}

// WithFingerprintFunc replaces DefaultFingerprint.
func WithFingerprintFunc(fn FingerprintFunc) Option {
	return func(c *Client) {
		c.fingerprint = fn
	}
}

// WithMaxResolveDepth bounds relationship resolution for endpoint calls.
func WithMaxResolveDepth(depth int) Option {
	return func(c *Client) {
		c.maxResolveDepth = depth
	}
}

// ValidateConfiguration validates the client configuration and returns an error if invalid
func (c *Client) ValidateConfiguration() error {
	var errors []string

	errors = append(errors, c.validateDelegateConfig()...)
	errors = append(errors, c.validateHTTPClientConfig()...)
	errors = append(errors, c.validateDebugConfig()...)
	errors = append(errors, c.validateMiddlewareConfig()...)
	errors = append(errors, c.validateExecutionConfig()...)

	if len(errors) > 0 {
		return &ClientError{
			Type:    ErrorTypeLocal,
			Message: "configuration validation failed",
			Cause:   fmt.Errorf("validation errors: %v", errors),
		}
	}

	return nil
}

// validateDelegateConfig validates the delegate and its endpoint
func (c *Client) validateDelegateConfig() []string {
	var errors []string

	if c.delegate == nil {
		errors = append(errors, "delegate cannot be nil")
		return errors
	}

	endpoint := c.delegate.APIEndpoint()
	if endpoint == nil {
		errors = append(errors, "delegate APIEndpoint cannot be nil")
	} else if endpoint.Scheme == "" || endpoint.Host == "" {
		errors = append(errors, "delegate APIEndpoint must be an absolute URL")
	}

	return errors
}

// validateHTTPClientConfig validates HTTP client configuration
func (c *Client) validateHTTPClientConfig() []string {
	var errors []string

	if c.httpClient == nil {
		errors = append(errors, "HTTP client cannot be nil")
	}

	if c.timeout <= 0 {
		errors = append(errors, "timeout must be positive")
	}

	if c.timeout > 10*time.Minute {
		errors = append(errors, "timeout > 10m keeps fingerprints reserved for too long")
	}

	return errors
}

// validateDebugConfig validates debug configuration
func (c *Client) validateDebugConfig() []string {
	var errors []string

	if c.debug != nil && c.debug.Enabled {
		if c.debug.RequestIDGen == nil {
			errors = append(errors, "debug RequestIDGen must be set when debug is enabled")
		}
		if c.logger == nil {
			errors = append(errors, "logger must be set when debug is enabled")
		}
	}

	return errors
}

// validateMiddlewareConfig validates middleware configuration
func (c *Client) validateMiddlewareConfig() []string {
	var errors []string

	for i, middleware := range c.middleware {
		if middleware == nil {
			errors = append(errors, fmt.Sprintf("middleware[%d] cannot be nil", i))
		}
	}

	return errors
}

// validateExecutionConfig validates decoding and de-duplication settings
func (c *Client) validateExecutionConfig() []string {
	var errors []string

	if c.registry == nil {
		errors = append(errors, "registry cannot be nil")
	}

	if c.fingerprint == nil {
		errors = append(errors, "fingerprint function cannot be nil")
	}

	if c.maxResolveDepth <= 0 {
		errors = append(errors, "maxResolveDepth must be positive")
	}

	return errors
}
