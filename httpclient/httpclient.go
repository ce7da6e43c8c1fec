package httpclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"etsy-edge/logger"
	"etsy-edge/trace"
)

// Config holds shared HTTP client settings.
type Config struct {
	Timeout time.Duration
}

// loggingRoundTripper logs every outbound HTTP call and propagates
// X-Request-Id / X-Span-Id headers.
type loggingRoundTripper struct {
	inner http.RoundTripper
}

func (l *loggingRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()

	ctx := req.Context()
	requestID, spanID := trace.NextSpanID(ctx)
	if requestID == "" {
		requestID = req.Header.Get("X-Request-Id")
		if requestID == "" {
			requestID = trace.GenerateID()
		}
		if spanID == "" {
			spanID = "1"
		}
	}
	req.Header.Set("X-Request-Id", requestID)
	req.Header.Set("X-Span-Id", spanID)

	query := ""
	if req.URL != nil {
		query = req.URL.RawQuery
	}
	// Read the body once for a log snippet, then restore it for the send.
	var bodySnippet string
	if req.Body != nil {
		if bodyBytes, err := io.ReadAll(req.Body); err == nil {
			if len(bodyBytes) > 0 {
				const maxBodyLog = 1024
				if len(bodyBytes) > maxBodyLog {
					bodySnippet = string(bodyBytes[:maxBodyLog])
				} else {
					bodySnippet = string(bodyBytes)
				}
			}
			req.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))
		}
	}

	resp, err := l.inner.RoundTrip(req)
	duration := time.Since(start)
	if err != nil {
		fields := logger.Fields{
			"method":     req.Method,
			"url":        req.URL.String(),
			"query":      query,
			"duration":   duration.String(),
			"request_id": requestID,
			"span_id":    spanID,
			"error":      err.Error(),
		}
		if bodySnippet != "" {
			fields["body"] = bodySnippet
		}
		logger.ErrorWithFields("httpclient request failed", fields)
		return nil, err
	}

	status := 0
	if resp != nil {
		status = resp.StatusCode
	}
	fields := logger.Fields{
		"method":     req.Method,
		"url":        req.URL.String(),
		"query":      query,
		"status":     status,
		"duration":   duration.String(),
		"request_id": requestID,
		"span_id":    spanID,
	}
	if bodySnippet != "" {
		fields["body"] = bodySnippet
	}
	logger.DebugWithFields("httpclient request success", fields)
	return resp, nil
}

// BaseClient bundles a shared http.Client with a base URL and helps build
// requests against it.
type BaseClient struct {
	HTTPClient *http.Client
	BaseURL    string
}

// NewBaseClient creates a BaseClient with the default logging http.Client.
func NewBaseClient(baseURL string) *BaseClient {
	return &BaseClient{
		HTTPClient: NewDefault(),
		BaseURL:    baseURL,
	}
}

// NewBaseClientWithClient uses an already-built http.Client; nil falls back
// to the default.
func NewBaseClientWithClient(httpClient *http.Client, baseURL string) *BaseClient {
	if httpClient == nil {
		httpClient = NewDefault()
	}
	return &BaseClient{
		HTTPClient: httpClient,
		BaseURL:    baseURL,
	}
}

// NewRequest builds a request from the base URL, a relative path, query
// values and a body. relPath must not carry its own query string; path.Join
// would mangle it.
func (c *BaseClient) NewRequest(ctx context.Context, method, relPath string, query url.Values, body io.Reader) (*http.Request, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if strings.Contains(relPath, "?") {
		return nil, fmt.Errorf("httpclient: relPath must not contain query string (use query parameter instead): %s", relPath)
	}
	base, err := url.Parse(c.BaseURL)
	if err != nil {
		return nil, err
	}
	if relPath != "" {
		base.Path = path.Join(base.Path, relPath)
	}
	if query != nil {
		base.RawQuery = query.Encode()
	}
	return http.NewRequestWithContext(ctx, method, base.String(), body)
}

// Do executes the request with the shared client.
func (c *BaseClient) Do(req *http.Request) (*http.Response, error) {
	return c.HTTPClient.Do(req)
}

// New builds an http.Client with logging transport. A zero Timeout means 10
// seconds.
func New(cfg Config) *http.Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	transport := http.DefaultTransport
	return &http.Client{
		Timeout:   timeout,
		Transport: &loggingRoundTripper{inner: transport},
	}
}

// NewDefault builds an http.Client with the shared defaults.
func NewDefault() *http.Client {
	return New(Config{})
}
