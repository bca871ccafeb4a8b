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
	"time"

	"github.com/mark3labs/mcp-go/mcp"
)

// statusReport is the structured payload returned by mind_status.
type statusReport struct {
	Success   bool           `json:"success"`
	Version   string         `json:"version"`
	BaseURL   string         `json:"base_url"`
	MindState string         `json:"default_mind_state"`
	TimeoutMS int64          `json:"timeout_ms"`
	Retries   int            `json:"retries"`
	Activity  map[string]any `json:"activity"`
}

// handleStatus implements the mind_status tool.
func (s *Server) handleStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if !s.rateLimiter.AllowCall() {
		return rateLimitedResult(), nil
	}

	snap := s.metrics.Snapshot()
	activity := map[string]any{
		"requests": snap.RequestsByOperation,
		"retries":  snap.RetriesByOperation,
		"failures": snap.FailuresByStatus,
	}
	if !snap.LastEventTime.IsZero() {
		activity["last_event"] = snap.LastEventTime.Format(time.RFC3339)
	}

	report := statusReport{
		Success:   true,
		Version:   s.version,
		BaseURL:   s.cfg.BaseURL,
		MindState: string(s.cfg.Defaults.MindState),
		TimeoutMS: s.cfg.HTTP.Timeout.Milliseconds(),
		Retries:   s.cfg.HTTP.Retries,
		Activity:  activity,
	}

	headline := fmt.Sprintf("mindlink %s, memory service at %s", s.version, s.cfg.BaseURL)
	return jsonResponse(headline, report), nil
}
