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
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/tombee/mindlink/internal/config"
	mindlinkerrors "github.com/tombee/mindlink/pkg/errors"
	"github.com/tombee/mindlink/pkg/mind"
)

// failure is the structured payload every failed tool call returns.
type failure struct {
	Success    bool             `json:"success"`
	Error      string           `json:"error"`
	Type       string           `json:"type,omitempty"`
	Status     int              `json:"status,omitempty"`
	Violations []mind.Violation `json:"violations,omitempty"`
}

// failureResult converts a core error into a tool result with descriptive
// text and a {success:false, ...} payload. Expected failures never become
// protocol-level errors.
func (s *Server) failureResult(op string, err error) *mcp.CallToolResult {
	payload := failure{
		Success: false,
		Error:   mindlinkerrors.UserString(err),
	}

	var verr *mind.ValidationError
	var apiErr *mind.APIError
	var terr *mind.TransportError
	var cfgErr *config.ConfigError
	switch {
	case mindlinkerrors.As(err, &verr):
		payload.Type = "validation"
		payload.Violations = verr.Violations
	case mindlinkerrors.As(err, &apiErr):
		payload.Type = apiErr.ErrorType()
		payload.Status = apiErr.StatusCode
	case mindlinkerrors.As(err, &terr):
		payload.Type = terr.ErrorType()
	case mindlinkerrors.As(err, &cfgErr):
		payload.Type = "config"
	default:
		payload.Type = "internal"
	}

	return jsonResponse(op+" failed: "+payload.Error, payload)
}

// rateLimitedResult is returned when the call bucket is empty.
func rateLimitedResult() *mcp.CallToolResult {
	return jsonResponse("Rate limit exceeded. Please try again later.", failure{
		Success: false,
		Error:   "rate limit exceeded",
		Type:    "rate_limited",
	})
}
