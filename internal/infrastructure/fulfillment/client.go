// Package fulfillment contains the adapters that hand a checkout to a lab:
// the WHCC and Mpix HTTP APIs, the ROES browser handshake and the local
// standard order path.
package fulfillment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	domain "github.com/photolab/backend/internal/domain/fulfillment"
	"github.com/photolab/backend/internal/infrastructure/config"
)

const (
	// maxResponseSize limits lab response bodies
	maxResponseSize = 4 * 1024 * 1024
	// maxErrorSnippet is how much of an error body ends up in the error message
	maxErrorSnippet = 256
	defaultTimeout  = 30 * time.Second
)

// BreakerObserver is notified when a lab's circuit breaker changes state
type BreakerObserver interface {
	RecordBreakerTransition(provider, to string)
}

// Option configures an HTTP adapter
type Option func(*clientOptions)

type clientOptions struct {
	httpClient *http.Client
	breaker    config.BreakerConfig
	observer   BreakerObserver
	logger     *zap.Logger
}

// WithHTTPClient replaces the default instrumented client
func WithHTTPClient(c *http.Client) Option {
	return func(o *clientOptions) { o.httpClient = c }
}

// WithBreaker sets the circuit breaker thresholds
func WithBreaker(cfg config.BreakerConfig) Option {
	return func(o *clientOptions) { o.breaker = cfg }
}

// WithBreakerObserver records breaker state changes
func WithBreakerObserver(obs BreakerObserver) Option {
	return func(o *clientOptions) { o.observer = obs }
}

// WithLogger sets the adapter logger
func WithLogger(l *zap.Logger) Option {
	return func(o *clientOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// NewHTTPClient returns a client whose requests are traced
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
}

type rawResponse struct {
	StatusCode int
	Body       []byte
}

// apiClient sends JSON requests to one lab through its circuit breaker
type apiClient struct {
	provider   domain.ProviderCode
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[*rawResponse]
	logger     *zap.Logger
}

func newAPIClient(provider domain.ProviderCode, timeout time.Duration, opts ...Option) *apiClient {
	o := &clientOptions{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(o)
	}
	if o.httpClient == nil {
		o.httpClient = NewHTTPClient(timeout)
	}
	logger := o.logger.Named(string(provider))
	return &apiClient{
		provider:   provider,
		httpClient: o.httpClient,
		breaker:    newBreaker(provider, o.breaker, o.observer, logger),
		logger:     logger,
	}
}

// do sends the request and maps the outcome onto the domain errors.
// The raw response is returned alongside 4xx errors.
func (c *apiClient) do(ctx context.Context, method, url string, body any, header http.Header) (*rawResponse, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("%s: encode request: %w", c.provider, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %w", c.provider, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, values := range header {
		for _, v := range values {
			req.Header.Add(k, v)
		}
	}

	resp, err := c.breaker.Execute(func() (*rawResponse, error) {
		return c.send(req)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %s", domain.ErrCircuitOpen, c.provider.DisplayName())
	}
	if err != nil {
		return nil, err
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return resp, fmt.Errorf("%w: %s returned %d", domain.ErrProviderAuthFailed, c.provider.DisplayName(), resp.StatusCode)
	case resp.StatusCode >= http.StatusBadRequest:
		return resp, fmt.Errorf("%w: %s returned %d: %s",
			domain.ErrProviderRequestFailed, c.provider.DisplayName(), resp.StatusCode, snippet(resp.Body))
	}
	return resp, nil
}

func (c *apiClient) send(req *http.Request) (*rawResponse, error) {
	start := time.Now()
	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("Lab request failed",
			zap.String("method", req.Method),
			zap.String("path", req.URL.Path),
			zap.Error(err),
		)
		return nil, c.transportError(req, "", err)
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseSize))
	if err != nil {
		return nil, c.transportError(req, "read response: ", err)
	}

	c.logger.Debug("Lab request completed",
		zap.String("method", req.Method),
		zap.String("path", req.URL.Path),
		zap.Int("status", httpResp.StatusCode),
		zap.Duration("latency", time.Since(start)),
	)

	raw := &rawResponse{StatusCode: httpResp.StatusCode, Body: data}
	if httpResp.StatusCode >= http.StatusInternalServerError {
		return raw, fmt.Errorf("%w: %s returned %d", domain.ErrProviderUnavailable, c.provider.DisplayName(), httpResp.StatusCode)
	}
	return raw, nil
}

// transportError keeps the cause matchable with errors.Is. A request cut off by
// the caller's own context is not the lab's fault and does not trip the breaker.
func (c *apiClient) transportError(req *http.Request, step string, err error) error {
	if ctxErr := req.Context().Err(); ctxErr != nil {
		return fmt.Errorf("%s: %s%w", c.provider.DisplayName(), step, ctxErr)
	}
	return fmt.Errorf("%w: %s: %s%w", domain.ErrProviderUnavailable, c.provider.DisplayName(), step, err)
}

func decodeJSON(provider domain.ProviderCode, data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrProviderInvalidResponse, provider.DisplayName(), err)
	}
	return nil
}

func snippet(body []byte) string {
	if len(body) > maxErrorSnippet {
		return string(body[:maxErrorSnippet]) + "..."
	}
	return string(body)
}
