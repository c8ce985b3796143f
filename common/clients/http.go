package clients

import (
	"context"
	"io"
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Logger interface for HTTP client logging
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Debug(msg string, keysAndValues ...interface{})
}

// HTTPClient wraps http.Client with context-aware helpers.
// Outgoing requests carry the trace context and the request id.
type HTTPClient struct {
	client *http.Client
	logger Logger
}

// NewHTTPClient creates a new HTTP client wrapper. The client's transport
// is wrapped with otelhttp.
func NewHTTPClient(client *http.Client, logger Logger) *HTTPClient {
	wrapped := *client
	wrapped.Transport = otelhttp.NewTransport(client.Transport)
	return &HTTPClient{
		client: &wrapped,
		logger: logger,
	}
}

// DoRequest creates and executes an HTTP request
func (c *HTTPClient) DoRequest(ctx context.Context, method, url, contentType string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	if requestID, ok := GetRequestID(ctx); ok {
		req.Header.Set("X-Request-ID", requestID)
	}

	c.logger.Debug("http request", "method", method, "url", url)
	return c.client.Do(req)
}
