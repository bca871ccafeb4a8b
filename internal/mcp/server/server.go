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

// Package server implements an MCP server that exposes the remote memory
// service as tools.
//
// Every core error (configuration, validation, API, transport) is
// converted into a tool result carrying descriptive text and a structured
// {success:false, ...} payload; tool handlers never surface protocol-level
// failures for expected error conditions.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/tombee/mindlink/internal/config"
	"github.com/tombee/mindlink/internal/log"
	"github.com/tombee/mindlink/pkg/mind"
)

// MemoryClient is the client surface the tools depend on. Tests inject a
// mock; production wires *mind.Client.
type MemoryClient interface {
	Connect(ctx context.Context, req *mind.ConnectRequest) (mind.Response, error)
	Ingest(ctx context.Context, req *mind.IngestRequest) (mind.Response, error)
	Query(ctx context.Context, req *mind.QueryRequest) (mind.Response, error)
}

// Server wraps the MCP server and provides the mind_* tools.
type Server struct {
	mcpServer   *server.MCPServer
	cfg         *config.Config
	client      MemoryClient
	metrics     *mind.MetricsCollector
	rateLimiter *RateLimiter
	logger      *slog.Logger
	version     string
}

// ServerConfig configures the MCP server.
type ServerConfig struct {
	// Version is the plugin version reported by mind_status.
	Version string

	// Config is the resolved runtime configuration. Required.
	Config *config.Config

	// Client overrides the remote client (tests). When nil, a client is
	// built from Config.
	Client MemoryClient

	// Logger is the structured logger. Defaults to a stderr text logger.
	Logger *slog.Logger

	// CallsPerMinute bounds total tool calls. Default 100.
	CallsPerMinute int
}

// NewServer creates the MCP server and registers the tools.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Config == nil {
		return nil, fmt.Errorf("server: Config is required")
	}
	if cfg.Version == "" {
		cfg.Version = "dev"
	}
	if cfg.Logger == nil {
		cfg.Logger = log.New(nil)
	}
	if cfg.CallsPerMinute <= 0 {
		cfg.CallsPerMinute = 100
	}

	metrics := mind.NewMetricsCollector()
	client := cfg.Client
	if client == nil {
		client = mind.NewClient(cfg.Config.Client(),
			mind.WithLogger(log.WithComponent(cfg.Logger, "client")),
			mind.WithMetrics(metrics),
			mind.WithUserAgent("mindlink/"+cfg.Version),
		)
	}

	s := &Server{
		mcpServer:   server.NewMCPServer("mindlink", cfg.Version),
		cfg:         cfg.Config,
		client:      client,
		metrics:     metrics,
		rateLimiter: NewRateLimiter(cfg.CallsPerMinute),
		logger:      cfg.Logger,
		version:     cfg.Version,
	}
	s.registerTools()
	return s, nil
}

// registerTools registers the mind_* tools with the MCP server.
func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.Tool{
		Name:        "mind_connect",
		Description: "Connect an end user to the remote memory service. Returns the connection ID used by later ingest and query calls.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"endUserExternalId": map[string]interface{}{
					"type":        "string",
					"description": "Caller-side identifier for the end user",
				},
				"email": map[string]interface{}{
					"type":        "string",
					"description": "Optional email address to attach to the connection",
				},
				"metadata": map[string]interface{}{
					"type":        "object",
					"description": "Opaque key-value metadata passed through to the service",
				},
			},
			Required: []string{"endUserExternalId"},
		},
	}, s.handleConnect)

	s.mcpServer.AddTool(mcp.Tool{
		Name:        "mind_ingest",
		Description: "Store a piece of content in the remote memory. Requires a connectionId or an endUserExternalId.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"connectionId": map[string]interface{}{
					"type":        "string",
					"description": "Connection UUID from mind_connect",
				},
				"endUserExternalId": map[string]interface{}{
					"type":        "string",
					"description": "Caller-side identifier for the end user",
				},
				"name": map[string]interface{}{
					"type":        "string",
					"description": "Label for the content (1-255 characters)",
				},
				"text": map[string]interface{}{
					"type":        "string",
					"description": "Content body (at least 100 characters)",
				},
				"type": map[string]interface{}{
					"type":        "string",
					"description": "Content type: raw_text, markdown, transcript, email or document (default raw_text)",
				},
				"ref": map[string]interface{}{
					"type":        "string",
					"description": "Optional caller-side reference for the content",
				},
				"metadata": map[string]interface{}{
					"type":        "object",
					"description": "Opaque key-value metadata passed through to the service",
				},
			},
			Required: []string{"name", "text"},
		},
	}, s.handleIngest)

	s.mcpServer.AddTool(mcp.Tool{
		Name:        "mind_query",
		Description: "Ask the remote memory a question. Requires a connectionId or an endUserExternalId.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"question": map[string]interface{}{
					"type":        "string",
					"description": "The question to ask",
				},
				"connectionId": map[string]interface{}{
					"type":        "string",
					"description": "Connection UUID from mind_connect",
				},
				"endUserExternalId": map[string]interface{}{
					"type":        "string",
					"description": "Caller-side identifier for the end user",
				},
				"mindState": map[string]interface{}{
					"type":        "string",
					"description": "Retrieval strategy hint: auto, short_term, mid_term or long_term",
				},
				"providers": map[string]interface{}{
					"type":        "array",
					"description": "Restrict which memory providers are consulted",
				},
				"include": map[string]interface{}{
					"type":        "object",
					"description": "Optional response sections: evidence, precision, citations, reconcile",
				},
				"maxTokens": map[string]interface{}{
					"type":        "integer",
					"description": "Answer size bound (1-4096)",
				},
				"temperature": map[string]interface{}{
					"type":        "number",
					"description": "Answer sampling temperature (0.0-2.0)",
				},
			},
			Required: []string{"question"},
		},
	}, s.handleQuery)

	s.mcpServer.AddTool(mcp.Tool{
		Name:        "mind_status",
		Description: "Report the plugin configuration (secrets redacted) and client activity counters.",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, s.handleStatus)
}

// Run starts the MCP server using stdio transport.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("starting mindlink MCP server", slog.String("version", s.version))
	if err := server.ServeStdio(s.mcpServer); err != nil {
		return fmt.Errorf("MCP server error: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down mindlink MCP server")
	// The mcp-go stdio server stops when ServeStdio returns.
	return nil
}

// textResponse creates a success tool result with plain text content.
func textResponse(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(text),
		},
	}
}

// jsonResponse renders a human-readable line followed by the structured
// payload as indented JSON.
func jsonResponse(headline string, payload any) *mcp.CallToolResult {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return textResponse(headline)
	}
	return textResponse(headline + "\n" + string(data))
}
