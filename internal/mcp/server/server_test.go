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

package server

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tombee/mindlink/internal/config"
	"github.com/tombee/mindlink/pkg/mind"
)

// mockClient scripts the remote client surface for handler tests.
type mockClient struct {
	connectResp mind.Response
	connectErr  error
	ingestResp  mind.Response
	ingestErr   error
	queryResp   mind.Response
	queryErr    error

	lastConnect *mind.ConnectRequest
	lastIngest  *mind.IngestRequest
	lastQuery   *mind.QueryRequest
}

func (m *mockClient) Connect(_ context.Context, req *mind.ConnectRequest) (mind.Response, error) {
	m.lastConnect = req
	return m.connectResp, m.connectErr
}

func (m *mockClient) Ingest(_ context.Context, req *mind.IngestRequest) (mind.Response, error) {
	m.lastIngest = req
	return m.ingestResp, m.ingestErr
}

func (m *mockClient) Query(_ context.Context, req *mind.QueryRequest) (mind.Response, error) {
	m.lastQuery = req
	return m.queryResp, m.queryErr
}

func testConfig() *config.Config {
	cfg, err := config.Resolve(map[string]any{
		"baseUrl": "https://memory.example.com",
		"apiKey":  "sk-test",
	}, config.PluginID)
	if err != nil {
		panic(err)
	}
	return cfg
}

func newTestServer(t *testing.T, client *mockClient) *Server {
	t.Helper()
	srv, err := NewServer(ServerConfig{
		Version: "test",
		Config:  testConfig(),
		Client:  client,
	})
	require.NoError(t, err)
	return srv
}

func toolRequest(args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{Arguments: args},
	}
}

// resultText flattens the text content of a tool result.
func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, result)
	var b strings.Builder
	for _, content := range result.Content {
		if text, ok := content.(mcp.TextContent); ok {
			b.WriteString(text.Text)
		}
	}
	return b.String()
}

func TestNewServer_RequiresConfig(t *testing.T) {
	_, err := NewServer(ServerConfig{Version: "test"})
	require.Error(t, err)
}

func TestHandleConnect_Success(t *testing.T) {
	client := &mockClient{connectResp: mind.Response{
		"success":       true,
		"connection_id": "8f14e45f-ceea-467f-a0e6-8f187f14b518",
	}}
	srv := newTestServer(t, client)

	result, err := srv.handleConnect(context.Background(), toolRequest(map[string]any{
		"endUserExternalId": "alice-1234",
	}))
	require.NoError(t, err)

	text := resultText(t, result)
	assert.Contains(t, text, "connection_id: 8f14e45f-ceea-467f-a0e6-8f187f14b518")
	assert.Equal(t, "alice-1234", client.lastConnect.EndUserExternalID)
}

func TestHandleConnect_ValidationFailure(t *testing.T) {
	client := &mockClient{}
	srv := newTestServer(t, client)

	result, err := srv.handleConnect(context.Background(), toolRequest(map[string]any{}))
	require.NoError(t, err, "validation failures must stay tool results")

	text := resultText(t, result)
	assert.Contains(t, text, "connect failed")
	assert.Contains(t, text, `"success": false`)
	assert.Contains(t, text, `"type": "validation"`)
	assert.Contains(t, text, "endUserExternalId")
	assert.Nil(t, client.lastConnect, "the client must not be called on invalid input")
}

func TestHandleIngest_Success(t *testing.T) {
	client := &mockClient{ingestResp: mind.Response{
		"success":   true,
		"stored_as": "short_term",
		"trace_id":  "tr-1",
	}}
	srv := newTestServer(t, client)

	result, err := srv.handleIngest(context.Background(), toolRequest(map[string]any{
		"end_user_external_id": "alice-1234",
		"name":                 "Weekly sync",
		"text":                 strings.Repeat("notes ", 30),
	}))
	require.NoError(t, err)

	text := resultText(t, result)
	assert.Contains(t, text, `Stored "Weekly sync" as short_term.`)
	assert.Contains(t, text, "trace_id: tr-1")
	require.NotNil(t, client.lastIngest)
	assert.Equal(t, mind.IngestTypeRawText, client.lastIngest.Type, "missing type defaults to raw_text")
}

func TestHandleIngest_APIFailure(t *testing.T) {
	client := &mockClient{ingestErr: &mind.APIError{
		Message:    "invalid api key",
		StatusCode: 401,
	}}
	srv := newTestServer(t, client)

	result, err := srv.handleIngest(context.Background(), toolRequest(map[string]any{
		"endUserExternalId": "alice-1234",
		"name":              "Weekly sync",
		"text":              strings.Repeat("notes ", 30),
	}))
	require.NoError(t, err, "API failures must stay tool results")

	text := resultText(t, result)
	assert.Contains(t, text, "invalid api key")
	assert.Contains(t, text, `"type": "auth"`)
	assert.Contains(t, text, `"status": 401`)
}

func TestHandleQuery_Success(t *testing.T) {
	client := &mockClient{queryResp: mind.Response{
		"success":          true,
		"answer":           "you decided to ship",
		"suggested_action": "review the changelog",
	}}
	srv := newTestServer(t, client)

	result, err := srv.handleQuery(context.Background(), toolRequest(map[string]any{
		"question":          "what did we decide?",
		"endUserExternalId": "alice-1234",
	}))
	require.NoError(t, err)

	text := resultText(t, result)
	assert.Contains(t, text, "you decided to ship")
	assert.Contains(t, text, "Suggested action: review the changelog")
}

func TestHandleQuery_NotFoundGetsFriendlyWording(t *testing.T) {
	client := &mockClient{queryErr: &mind.APIError{
		Message:    "no context",
		StatusCode: 404,
	}}
	srv := newTestServer(t, client)

	result, err := srv.handleQuery(context.Background(), toolRequest(map[string]any{
		"question":          "what did we decide?",
		"endUserExternalId": "alice-1234",
	}))
	require.NoError(t, err)

	text := resultText(t, result)
	assert.Contains(t, text, "No memories found for this user yet. Ingest content first.")
	assert.Contains(t, text, `"status": 404`)
}

func TestHandleQuery_TransportFailure(t *testing.T) {
	client := &mockClient{queryErr: &mind.TransportError{
		Op:      "query",
		Timeout: true,
		Cause:   context.DeadlineExceeded,
	}}
	srv := newTestServer(t, client)

	result, err := srv.handleQuery(context.Background(), toolRequest(map[string]any{
		"question":          "q",
		"endUserExternalId": "alice-1234",
	}))
	require.NoError(t, err)

	text := resultText(t, result)
	assert.Contains(t, text, `"type": "timeout"`)
}

func TestHandleQuery_RawTextAnswer(t *testing.T) {
	client := &mockClient{queryResp: mind.Response{
		mind.RawBodyKey: "plain service text",
	}}
	srv := newTestServer(t, client)

	result, err := srv.handleQuery(context.Background(), toolRequest(map[string]any{
		"question":          "q",
		"endUserExternalId": "alice-1234",
	}))
	require.NoError(t, err)
	assert.Contains(t, resultText(t, result), "plain service text")
}

func TestHandleStatus(t *testing.T) {
	srv := newTestServer(t, &mockClient{})

	result, err := srv.handleStatus(context.Background(), toolRequest(nil))
	require.NoError(t, err)

	text := resultText(t, result)
	assert.Contains(t, text, "mindlink test")
	assert.Contains(t, text, "https://memory.example.com")
	assert.Contains(t, text, `"retries": 2`)
	assert.NotContains(t, text, "sk-test", "the API key must never appear in status output")
}

func TestRateLimiting(t *testing.T) {
	client := &mockClient{connectResp: mind.Response{"success": true}}
	srv, err := NewServer(ServerConfig{
		Version:        "test",
		Config:         testConfig(),
		Client:         client,
		CallsPerMinute: 2,
	})
	require.NoError(t, err)

	args := toolRequest(map[string]any{"endUserExternalId": "alice-1234"})
	for i := 0; i < 2; i++ {
		result, err := srv.handleConnect(context.Background(), args)
		require.NoError(t, err)
		assert.NotContains(t, resultText(t, result), "rate limit exceeded")
	}

	result, err := srv.handleConnect(context.Background(), args)
	require.NoError(t, err)
	assert.Contains(t, resultText(t, result), "rate limit exceeded")
}

func TestRateLimiter_Refills(t *testing.T) {
	rl := NewRateLimiter(60) // one token per second
	for i := 0; i < 60; i++ {
		require.True(t, rl.AllowCall())
	}
	require.False(t, rl.AllowCall())

	// Simulate a second passing instead of sleeping.
	rl.mu.Lock()
	rl.lastRefill = rl.lastRefill.Add(-time.Second)
	rl.mu.Unlock()
	assert.True(t, rl.AllowCall())
}
