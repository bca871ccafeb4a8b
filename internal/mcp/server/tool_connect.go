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
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/tombee/mindlink/pkg/mind"
)

// handleConnect implements the mind_connect tool.
func (s *Server) handleConnect(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if !s.rateLimiter.AllowCall() {
		return rateLimitedResult(), nil
	}

	req, err := mind.ParseConnectRequest(request.GetArguments())
	if err != nil {
		return s.failureResult("connect", err), nil
	}

	resp, err := s.client.Connect(ctx, req)
	if err != nil {
		return s.failureResult("connect", err), nil
	}

	headline := "Connected."
	if connectionID, ok := resp.String("connection_id"); ok {
		headline = fmt.Sprintf("Connected. connection_id: %s", connectionID)
	}
	if created, ok := resp.Bool("created"); ok && !created {
		headline += " (existing connection reused)"
	}
	if msg, ok := resp.String("message"); ok && msg != "" {
		headline += "\n" + msg
	}

	return jsonResponse(headline, resp), nil
}
