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
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordedRequest captures what the fake service saw for one request.
type recordedRequest struct {
	path        string
	apiKey      string
	contentType string
	body        map[string]any
}

// fakeService serves a scripted sequence of responses and records every
// request it receives.
type fakeService struct {
	t         *testing.T
	responses []fakeResponse
	requests  []recordedRequest
}

type fakeResponse struct {
	status int
	body   string
}

func (f *fakeService) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, err := io.ReadAll(r.Body)
		require.NoError(f.t, err)

		rec := recordedRequest{
			path:        r.URL.Path,
			apiKey:      r.Header.Get("x-api-key"),
			contentType: r.Header.Get("content-type"),
		}
		// Bodies are always JSON objects.
		require.NoError(f.t, json.Unmarshal(raw, &rec.body))
		f.requests = append(f.requests, rec)

		resp := f.responses[0]
		if len(f.responses) > 1 {
			f.responses = f.responses[1:]
		}
		w.WriteHeader(resp.status)
		_, _ = w.Write([]byte(resp.body))
	}
}

func newTestClient(t *testing.T, srv *httptest.Server, retries int, opts ...Option) (*Client, *recordingSleeper) {
	t.Helper()
	sleeper := &recordingSleeper{}
	cfg := ClientConfig{
		BaseURL: srv.URL,
		APIKey:  "test-key",
		Timeout: 5 * time.Second,
		Retries: retries,
		Defaults: QueryDefaults{
			MindState:   MindStateAuto,
			MaxTokens:   512,
			Temperature: 0.2,
		},
	}
	opts = append(opts, WithHTTPClient(srv.Client()), WithSleeper(sleeper.sleep))
	return NewClient(cfg, opts...), sleeper
}

func TestClient_Connect(t *testing.T) {
	svc := &fakeService{t: t, responses: []fakeResponse{
		{200, `{"success": true, "connection_id": "8f14e45f-ceea-467f-a0e6-8f187f14b518"}`},
	}}
	srv := httptest.NewServer(svc.handler())
	defer srv.Close()

	client, _ := newTestClient(t, srv, 2)
	resp, err := client.Connect(context.Background(), &ConnectRequest{
		EndUserExternalID: "alice-1234",
		Email:             "alice@example.com",
	})
	require.NoError(t, err)

	connectionID, ok := resp.String("connection_id")
	require.True(t, ok)
	assert.Equal(t, "8f14e45f-ceea-467f-a0e6-8f187f14b518", connectionID)

	require.Len(t, svc.requests, 1)
	req := svc.requests[0]
	assert.Equal(t, "/api/connections/memory", req.path)
	assert.Equal(t, "test-key", req.apiKey)
	assert.Equal(t, "application/json", req.contentType)
	assert.Equal(t, map[string]any{
		"end_user": map[string]any{
			"external_id": "alice-1234",
			"email":       "alice@example.com",
		},
	}, req.body)
}

func TestClient_Connect_OmitsAbsentOptionalFields(t *testing.T) {
	svc := &fakeService{t: t, responses: []fakeResponse{{200, `{"success": true}`}}}
	srv := httptest.NewServer(svc.handler())
	defer srv.Close()

	client, _ := newTestClient(t, srv, 0)
	_, err := client.Connect(context.Background(), &ConnectRequest{EndUserExternalID: "alice-1234"})
	require.NoError(t, err)

	require.Len(t, svc.requests, 1)
	body := svc.requests[0].body
	endUser, ok := body["end_user"].(map[string]any)
	require.True(t, ok)
	_, hasEmail := endUser["email"]
	assert.False(t, hasEmail, "absent email must be omitted, not sent as null")
	_, hasMetadata := body["metadata"]
	assert.False(t, hasMetadata, "absent metadata must be omitted")
}

func TestClient_Connect_RepeatedCallsAreEquivalent(t *testing.T) {
	svc := &fakeService{t: t, responses: []fakeResponse{{200, `{"success": true}`}}}
	srv := httptest.NewServer(svc.handler())
	defer srv.Close()

	client, _ := newTestClient(t, srv, 0)
	req := &ConnectRequest{EndUserExternalID: "alice-1234"}
	_, err := client.Connect(context.Background(), req)
	require.NoError(t, err)
	_, err = client.Connect(context.Background(), req)
	require.NoError(t, err)

	require.Len(t, svc.requests, 2)
	assert.Equal(t, svc.requests[0].body, svc.requests[1].body,
		"identical input must produce identical outbound requests")
}

func TestClient_Ingest(t *testing.T) {
	svc := &fakeService{t: t, responses: []fakeResponse{
		{200, `{"success": true, "stored_as": "short_term", "trace_id": "tr-1"}`},
	}}
	srv := httptest.NewServer(svc.handler())
	defer srv.Close()

	client, _ := newTestClient(t, srv, 2)
	resp, err := client.Ingest(context.Background(), &IngestRequest{
		EndUserExternalID: "alice-1234",
		Name:              "Weekly sync",
		Text:              strings.Repeat("meeting notes ", 20),
		Type:              IngestTypeTranscript,
		Ref:               "doc-42",
	})
	require.NoError(t, err)

	storedAs, ok := resp.String("stored_as")
	require.True(t, ok)
	assert.Equal(t, "short_term", storedAs)

	require.Len(t, svc.requests, 1)
	req := svc.requests[0]
	assert.Equal(t, "/api/context/compile", req.path)
	assert.Equal(t, "transcript", req.body["type"])
	assert.Equal(t, "doc-42", req.body["ref"])
	assert.Equal(t, "alice-1234", req.body["end_user_external_id"])
	_, hasConnection := req.body["connection_id"]
	assert.False(t, hasConnection, "absent connection_id must be omitted")
	_, hasEmail := req.body["email"]
	assert.False(t, hasEmail, "email is not part of the ingest payload")
}

func TestClient_Query_AppliesConfiguredDefaults(t *testing.T) {
	svc := &fakeService{t: t, responses: []fakeResponse{
		{200, `{"success": true, "answer": "you decided to ship"}`},
	}}
	srv := httptest.NewServer(svc.handler())
	defer srv.Close()

	client, _ := newTestClient(t, srv, 2)
	resp, err := client.Query(context.Background(), &QueryRequest{
		Question:          "what did we decide?",
		EndUserExternalID: "alice-1234",
	})
	require.NoError(t, err)

	answer, ok := resp.String("answer")
	require.True(t, ok)
	assert.Equal(t, "you decided to ship", answer)

	require.Len(t, svc.requests, 1)
	req := svc.requests[0]
	assert.Equal(t, "/api/context/brain", req.path)
	assert.Equal(t, "auto", req.body["mind_state"])
	assert.Equal(t, float64(512), req.body["max_tokens"])
	assert.Equal(t, 0.2, req.body["temperature"])
}

func TestClient_Query_ExplicitFieldsOverrideDefaults(t *testing.T) {
	svc := &fakeService{t: t, responses: []fakeResponse{{200, `{"success": true}`}}}
	srv := httptest.NewServer(svc.handler())
	defer srv.Close()

	temp := 0.0
	client, _ := newTestClient(t, srv, 0)
	_, err := client.Query(context.Background(), &QueryRequest{
		Question:     "what did we decide?",
		ConnectionID: "8f14e45f-ceea-467f-a0e6-8f187f14b518",
		MindState:    MindStateLongTerm,
		MaxTokens:    64,
		Temperature:  &temp,
		Providers:    []string{"notion"},
		Include:      &IncludeOptions{Evidence: true},
	})
	require.NoError(t, err)

	body := svc.requests[0].body
	assert.Equal(t, "long_term", body["mind_state"])
	assert.Equal(t, float64(64), body["max_tokens"])
	// Explicit zero temperature wins over the 0.2 default.
	assert.Equal(t, 0.0, body["temperature"])
	assert.Equal(t, []any{"notion"}, body["providers"])
	include, ok := body["include"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, true, include["evidence"])
}

func TestClient_RetriesServerErrors(t *testing.T) {
	svc := &fakeService{t: t, responses: []fakeResponse{
		{500, `{"error": "internal"}`},
		{500, `{"error": "internal"}`},
		{200, `{"success": true, "answer": "ok"}`},
	}}
	srv := httptest.NewServer(svc.handler())
	defer srv.Close()

	client, sleeper := newTestClient(t, srv, 2)
	resp, err := client.Query(context.Background(), &QueryRequest{
		Question:          "q",
		EndUserExternalID: "alice-1234",
	})
	require.NoError(t, err)
	require.NotNil(t, resp)

	assert.Len(t, svc.requests, 3)
	assert.Equal(t, []time.Duration{250 * time.Millisecond, 500 * time.Millisecond}, sleeper.delays)
}

func TestClient_ExhaustedRetriesSurfaceLastError(t *testing.T) {
	svc := &fakeService{t: t, responses: []fakeResponse{
		{503, `{"error": "overloaded"}`},
	}}
	srv := httptest.NewServer(svc.handler())
	defer srv.Close()

	client, _ := newTestClient(t, srv, 2)
	_, err := client.Connect(context.Background(), &ConnectRequest{EndUserExternalID: "alice-1234"})
	require.Error(t, err)

	assert.Len(t, svc.requests, 3)
	apiErr, ok := err.(*APIError)
	require.True(t, ok, "expected *APIError, got %T", err)
	assert.Equal(t, 503, apiErr.StatusCode)
	assert.Equal(t, "overloaded", apiErr.Message)
	assert.True(t, apiErr.Retryable)
}

func TestClient_TerminalStatusNotRetried(t *testing.T) {
	tests := []struct {
		name   string
		status int
	}{
		{"bad request", 400},
		{"unauthorized", 401},
		{"not found", 404},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeService{t: t, responses: []fakeResponse{
				{tt.status, `{"error": "nope"}`},
			}}
			srv := httptest.NewServer(svc.handler())
			defer srv.Close()

			client, sleeper := newTestClient(t, srv, 3)
			_, err := client.Query(context.Background(), &QueryRequest{
				Question:          "q",
				EndUserExternalID: "alice-1234",
			})
			require.Error(t, err)

			assert.Len(t, svc.requests, 1, "terminal statuses must not be retried")
			assert.Empty(t, sleeper.delays)
			apiErr, ok := err.(*APIError)
			require.True(t, ok)
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.False(t, apiErr.Retryable)
		})
	}
}

func TestClient_RetryableStatuses(t *testing.T) {
	for _, status := range []int{408, 429, 500, 502, 503} {
		svc := &fakeService{t: t, responses: []fakeResponse{
			{status, `{}`},
			{200, `{"success": true}`},
		}}
		srv := httptest.NewServer(svc.handler())

		client, _ := newTestClient(t, srv, 1)
		_, err := client.Connect(context.Background(), &ConnectRequest{EndUserExternalID: "u"})
		srv.Close()

		require.NoError(t, err, "status %d should be retried into a success", status)
		assert.Len(t, svc.requests, 2, "status %d", status)
	}
}

func TestClient_MalformedJSONBodyIsRawText(t *testing.T) {
	svc := &fakeService{t: t, responses: []fakeResponse{
		{200, `not json at all`},
	}}
	srv := httptest.NewServer(svc.handler())
	defer srv.Close()

	client, _ := newTestClient(t, srv, 0)
	resp, err := client.Query(context.Background(), &QueryRequest{
		Question:          "q",
		EndUserExternalID: "alice-1234",
	})
	require.NoError(t, err, "a malformed 2xx body must not be an error")

	raw, ok := resp.Raw()
	require.True(t, ok)
	assert.Equal(t, "not json at all", raw)
}

func TestClient_ErrorMessagePriority(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"error field", `{"error": "bad key", "message": "ignored"}`, "bad key"},
		{"nested error message", `{"error": {"message": "bad key"}}`, "bad key"},
		{"message field", `{"message": "slow down"}`, "slow down"},
		{"raw text", `service unavailable`, "service unavailable"},
		{"empty body", ``, "request failed with HTTP 400"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeService{t: t, responses: []fakeResponse{{400, tt.body}}}
			srv := httptest.NewServer(svc.handler())
			defer srv.Close()

			client, _ := newTestClient(t, srv, 0)
			_, err := client.Connect(context.Background(), &ConnectRequest{EndUserExternalID: "u"})
			require.Error(t, err)

			apiErr, ok := err.(*APIError)
			require.True(t, ok)
			assert.Equal(t, tt.want, apiErr.Message)
			assert.Equal(t, tt.body, apiErr.RawBody)
		})
	}
}

func TestClient_CancelledContextIsTerminal(t *testing.T) {
	svc := &fakeService{t: t, responses: []fakeResponse{{500, `{}`}}}
	srv := httptest.NewServer(svc.handler())
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client, _ := newTestClient(t, srv, 3)
	_, err := client.Connect(ctx, &ConnectRequest{EndUserExternalID: "u"})
	require.Error(t, err)

	terr, ok := err.(*TransportError)
	require.True(t, ok, "expected *TransportError, got %T", err)
	assert.False(t, terr.Retryable, "caller cancellation must be terminal")
}

func TestClient_ConnectionFailureIsRetryable(t *testing.T) {
	// Point at a server that has already been shut down.
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	sleeper := &recordingSleeper{}
	client := NewClient(ClientConfig{
		BaseURL: url,
		APIKey:  "k",
		Timeout: time.Second,
		Retries: 2,
	}, WithSleeper(sleeper.sleep))

	_, err := client.Connect(context.Background(), &ConnectRequest{EndUserExternalID: "u"})
	require.Error(t, err)

	terr, ok := err.(*TransportError)
	require.True(t, ok, "expected *TransportError, got %T", err)
	assert.True(t, terr.Retryable)
	assert.Len(t, sleeper.delays, 2, "connection failures should be retried")
}

func TestClient_RecordsMetrics(t *testing.T) {
	svc := &fakeService{t: t, responses: []fakeResponse{
		{500, `{}`},
		{200, `{"success": true}`},
	}}
	srv := httptest.NewServer(svc.handler())
	defer srv.Close()

	metrics := NewMetricsCollector()
	client, _ := newTestClient(t, srv, 2, WithMetrics(metrics))
	_, err := client.Connect(context.Background(), &ConnectRequest{EndUserExternalID: "u"})
	require.NoError(t, err)

	snap := metrics.Snapshot()
	assert.Equal(t, int64(1), snap.RequestsByOperation["connect"])
	assert.Equal(t, int64(1), snap.RetriesByOperation["connect"])
	assert.Empty(t, snap.FailuresByStatus["connect"])
}
