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
	"net/http"

	"github.com/mark3labs/mcp-go/mcp"

	mindlinkerrors "github.com/tombee/mindlink/pkg/errors"
	"github.com/tombee/mindlink/pkg/mind"
)

// handleQuery implements the mind_query tool.
func (s *Server) handleQuery(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if !s.rateLimiter.AllowCall() {
		return rateLimitedResult(), nil
	}

	req, err := mind.ParseQueryRequest(request.GetArguments())
	if err != nil {
		return s.failureResult("query", err), nil
	}

	resp, err := s.client.Query(ctx, req)
	if err != nil {
		// A 404 stays a terminal APIError in the core; the tool maps it
		// to friendlier wording for assistants.
		var apiErr *mind.APIError
		if mindlinkerrors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return jsonResponse("No memories found for this user yet. Ingest content first.", failure{
				Success: false,
				Error:   apiErr.Message,
				Type:    apiErr.ErrorType(),
				Status:  apiErr.StatusCode,
			}), nil
		}
		return s.failureResult("query", err), nil
	}

	headline := "Query completed."
	if answer, ok := resp.String("answer"); ok && answer != "" {
		headline = answer
	} else if raw, ok := resp.NestedString("short_term", "raw_text"); ok && raw != "" {
		headline = raw
	} else if raw, ok := resp.Raw(); ok && raw != "" {
		headline = raw
	}
	if action, ok := resp.String("suggested_action"); ok && action != "" {
		headline += "\n\nSuggested action: " + action
	}

	return jsonResponse(headline, resp), nil
}
