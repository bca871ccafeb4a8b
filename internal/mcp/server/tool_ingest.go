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

// handleIngest implements the mind_ingest tool.
func (s *Server) handleIngest(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if !s.rateLimiter.AllowCall() {
		return rateLimitedResult(), nil
	}

	req, err := mind.ParseIngestRequest(request.GetArguments())
	if err != nil {
		return s.failureResult("ingest", err), nil
	}

	resp, err := s.client.Ingest(ctx, req)
	if err != nil {
		return s.failureResult("ingest", err), nil
	}

	headline := fmt.Sprintf("Stored %q.", req.Name)
	if storedAs, ok := resp.String("stored_as"); ok {
		headline = fmt.Sprintf("Stored %q as %s.", req.Name, storedAs)
	}
	if traceID, ok := resp.String("trace_id"); ok {
		headline += " trace_id: " + traceID
	}
	if msg, ok := resp.String("message"); ok && msg != "" {
		headline += "\n" + msg
	}

	return jsonResponse(headline, resp), nil
}
