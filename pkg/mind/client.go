// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package mind

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// API paths for the three remote operations.
const (
	connectPath = "/api/connections/memory"
	ingestPath  = "/api/context/compile"
	queryPath   = "/api/context/brain"
)

const (
	headerAPIKey      = "x-api-key"
	headerContentType = "content-type"
	defaultUserAgent  = "mindlink/1.0"
)

// QueryDefaults fills unset optional query fields before transmission.
type QueryDefaults struct {
	MindState   MindState
	MaxTokens   int
	Temperature float64
}

// ClientConfig is the resolved runtime configuration the client needs.
// It is immutable once constructed; the config resolver produces it.
type ClientConfig struct {
	// BaseURL is the normalized service origin, no trailing slash.
	BaseURL string

	// APIKey is sent as the x-api-key header on every request.
	APIKey string

	// Timeout bounds each individual attempt.
	Timeout time.Duration

	// Retries is the number of re-attempts after the initial try.
	Retries int

	// Defaults fills unset optional query fields.
	Defaults QueryDefaults
}

// Client performs the three remote memory operations. It holds no per-call
// state and is safe for concurrent use.
type Client struct {
	cfg       ClientConfig
	http      *http.Client
	logger    *slog.Logger
	sleep     Sleeper
	metrics   *MetricsCollector
	tracer    trace.Tracer
	userAgent string
}

// Option customizes client construction.
type Option func(*Client)

// WithHTTPClient substitutes the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLogger sets the structured logger. Attempts log at debug level.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithSleeper substitutes the backoff sleeper. Tests use this to observe
// retry delays without waiting on the wall clock.
func WithSleeper(s Sleeper) Option {
	return func(c *Client) { c.sleep = s }
}

// WithMetrics attaches an in-process metrics collector.
func WithMetrics(m *MetricsCollector) Option {
	return func(c *Client) { c.metrics = m }
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// NewClient creates a client for the given resolved configuration.
func NewClient(cfg ClientConfig, opts ...Option) *Client {
	c := &Client{
		cfg:       cfg,
		http:      newHTTPClient(),
		logger:    slog.New(slog.DiscardHandler),
		sleep:     sleepContext,
		tracer:    otel.Tracer("mindlink.client"),
		userAgent: defaultUserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// newHTTPClient builds the default transport: TLS 1.2+, connection pooling.
// Per-attempt timeouts come from the request context, not the client.
func newHTTPClient() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			DialContext: (&net.Dialer{
				Timeout:   10 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		},
	}
}

// Connect associates an external end-user identifier with a remote memory
// store. The request must already be validated.
func (c *Client) Connect(ctx context.Context, req *ConnectRequest) (Response, error) {
	return c.do(ctx, "connect", connectPath, connectBody(req))
}

// Ingest stores content in the remote memory. The request must already be
// validated.
func (c *Client) Ingest(ctx context.Context, req *IngestRequest) (Response, error) {
	return c.do(ctx, "ingest", ingestPath, ingestBody(req))
}

// Query asks the remote memory a question, filling unset optional fields
// from the configured defaults. The request must already be validated.
func (c *Client) Query(ctx context.Context, req *QueryRequest) (Response, error) {
	return c.do(ctx, "query", queryPath, c.queryBody(req))
}

// connectBody builds the connect payload. Absent optional fields are
// omitted entirely, never sent as null.
func connectBody(req *ConnectRequest) map[string]any {
	endUser := map[string]any{"external_id": req.EndUserExternalID}
	if req.Email != "" {
		endUser["email"] = req.Email
	}
	body := map[string]any{"end_user": endUser}
	if len(req.Metadata) > 0 {
		body["metadata"] = req.Metadata
	}
	return body
}

// ingestBody builds the ingest payload. Absent optional fields are omitted
// entirely, never sent as null.
func ingestBody(req *IngestRequest) map[string]any {
	contentType := req.Type
	if contentType == "" {
		contentType = IngestTypeRawText
	}
	body := map[string]any{
		"name": req.Name,
		"text": req.Text,
		"type": string(contentType),
	}
	if req.ConnectionID != "" {
		body["connection_id"] = req.ConnectionID
	}
	if req.EndUserExternalID != "" {
		body["end_user_external_id"] = req.EndUserExternalID
	}
	if req.Ref != "" {
		body["ref"] = req.Ref
	}
	if len(req.Metadata) > 0 {
		body["metadata"] = req.Metadata
	}
	return body
}

// queryBody builds the query payload, applying configured defaults to
// unset optional fields. Absent optional fields with no default are
// omitted entirely.
func (c *Client) queryBody(req *QueryRequest) map[string]any {
	body := map[string]any{"question": req.Question}
	if req.ConnectionID != "" {
		body["connection_id"] = req.ConnectionID
	}
	if req.EndUserExternalID != "" {
		body["end_user_external_id"] = req.EndUserExternalID
	}

	mindState := req.MindState
	if mindState == "" {
		mindState = c.cfg.Defaults.MindState
	}
	if mindState != "" {
		body["mind_state"] = string(mindState)
	}

	if len(req.Providers) > 0 {
		body["providers"] = req.Providers
	}
	if req.Include != nil {
		body["include"] = map[string]any{
			"evidence":  req.Include.Evidence,
			"precision": req.Include.Precision,
			"citations": req.Include.Citations,
			"reconcile": req.Include.Reconcile,
		}
	}

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = c.cfg.Defaults.MaxTokens
	}
	if maxTokens != 0 {
		body["max_tokens"] = maxTokens
	}

	if req.Temperature != nil {
		body["temperature"] = *req.Temperature
	} else if c.cfg.Defaults.Temperature != 0 {
		body["temperature"] = c.cfg.Defaults.Temperature
	}

	return body
}

// do runs the bounded retry loop for one operation.
func (c *Client) do(ctx context.Context, op, path string, body map[string]any) (Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("%s: encoding request body: %w", op, err)
	}
	url := c.cfg.BaseURL + path

	ctx, span := c.tracer.Start(ctx, "mind."+op, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	start := time.Now()
	policy := retryPolicy{maxAttempts: c.cfg.Retries + 1}
	resp, attempts, err := execute(ctx, policy, c.sleep, func(ctx context.Context) (Response, error) {
		return c.attempt(ctx, op, url, payload)
	})
	duration := time.Since(start)

	span.SetAttributes(
		attribute.String("mind.operation", op),
		attribute.Int("mind.attempts", attempts),
	)
	status := 0
	if apiErr, ok := err.(*APIError); ok {
		status = apiErr.StatusCode
	} else if err == nil {
		status = http.StatusOK
	}
	if status != 0 {
		span.SetAttributes(attribute.Int("http.status_code", status))
	}
	c.metrics.Record(op, attempts, status, duration, err == nil)

	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		c.logger.Debug("memory operation failed",
			slog.String(KeyOperation, op),
			slog.Int(KeyAttempts, attempts),
			slog.Int(KeyStatusCode, status),
			slog.Int64(KeyDurationMS, duration.Milliseconds()),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	c.logger.Debug("memory operation succeeded",
		slog.String(KeyOperation, op),
		slog.Int(KeyAttempts, attempts),
		slog.Int64(KeyDurationMS, duration.Milliseconds()),
	)
	return resp, nil
}

// attempt performs one POST under its own timeout and classifies the result.
func (c *Client) attempt(ctx context.Context, op, url string, payload []byte) (Response, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, &TransportError{Op: op, Cause: err, Retryable: false}
	}
	req.Header.Set(headerContentType, "application/json")
	req.Header.Set(headerAPIKey, c.cfg.APIKey)
	req.Header.Set("User-Agent", c.userAgent)

	c.logger.Debug("attempting request",
		slog.String(KeyOperation, op),
		slog.String("url", url),
	)

	httpResp, err := c.http.Do(req)
	if err != nil {
		return nil, c.classifyTransport(ctx, attemptCtx, op, err)
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, c.classifyTransport(ctx, attemptCtx, op, err)
	}

	parsed := parseBody(raw)
	status := httpResp.StatusCode

	if status >= 200 && status < 300 {
		return parsed, nil
	}

	return nil, &APIError{
		Message:    errorMessage(parsed, string(raw), status),
		StatusCode: status,
		RawBody:    string(raw),
		Retryable:  retryableStatus(status),
	}
}

// classifyTransport distinguishes an attempt timeout (retryable) from a
// caller cancellation (terminal) and plain connection failures (retryable).
func (c *Client) classifyTransport(parent, attempt context.Context, op string, err error) *TransportError {
	if parent.Err() != nil {
		return &TransportError{Op: op, Cause: err, Retryable: false}
	}
	if attempt.Err() == context.DeadlineExceeded {
		return &TransportError{Op: op, Cause: err, Timeout: true, Retryable: true}
	}
	return &TransportError{Op: op, Cause: err, Retryable: true}
}

// retryableStatus reports whether a non-2xx status may be re-attempted:
// 408, 429 and any 5xx. Every other status is terminal.
func retryableStatus(status int) bool {
	switch {
	case status == http.StatusRequestTimeout:
		return true
	case status == http.StatusTooManyRequests:
		return true
	case status >= 500 && status < 600:
		return true
	default:
		return false
	}
}

// parseBody parses the response body as JSON when possible; a body that is
// not a JSON object is kept as raw text. Malformed remote JSON is never an
// error.
func parseBody(raw []byte) Response {
	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil || payload == nil {
		return Response{RawBodyKey: string(raw)}
	}
	return Response(payload)
}

// errorMessage derives a failure message with the priority: body error
// field, body message field, raw text, generic status message.
func errorMessage(payload Response, raw string, status int) string {
	if msg, ok := payload.String("error"); ok && msg != "" {
		return msg
	}
	if obj, ok := payload.Map("error"); ok {
		if msg, ok := obj["message"].(string); ok && msg != "" {
			return msg
		}
	}
	if msg, ok := payload.String("message"); ok && msg != "" {
		return msg
	}
	if trimmed := strings.TrimSpace(raw); trimmed != "" {
		return truncate(trimmed, 2000)
	}
	return fmt.Sprintf("request failed with HTTP %d", status)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
