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
	"fmt"
	"strings"
)

// Violation describes one failed constraint on one field.
type Violation struct {
	// Path is the canonical field path (e.g. "endUserExternalId").
	Path string

	// Message describes the violated constraint.
	Message string
}

// ValidationError reports every constraint violated by a request.
// It is produced before any network activity and is never retried.
type ValidationError struct {
	Violations []Violation
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if len(e.Violations) == 0 {
		return "invalid request"
	}
	parts := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		parts[i] = fmt.Sprintf("%s: %s", v.Path, v.Message)
	}
	return "invalid request: " + strings.Join(parts, "; ")
}

// IsUserVisible implements pkg/errors.UserVisibleError.
func (e *ValidationError) IsUserVisible() bool { return true }

// UserMessage implements pkg/errors.UserVisibleError.
func (e *ValidationError) UserMessage() string { return e.Error() }

// Suggestion implements pkg/errors.UserVisibleError.
func (e *ValidationError) Suggestion() string {
	return "fix the listed fields and retry"
}

// add records a violation and returns the error for chaining.
func (e *ValidationError) add(path, message string) *ValidationError {
	e.Violations = append(e.Violations, Violation{Path: path, Message: message})
	return e
}

// errOrNil collapses an empty violation list to nil.
func (e *ValidationError) errOrNil() error {
	if len(e.Violations) == 0 {
		return nil
	}
	return e
}

// APIError is a non-2xx response from the remote service. The raw body and
// status are preserved so callers can branch on them (e.g. 404 "no data
// yet" vs 401 "bad key").
type APIError struct {
	// Message is derived from the response body's error field, then its
	// message field, then the raw body, then a generic status message.
	Message string

	// StatusCode is the HTTP status returned by the service.
	StatusCode int

	// RawBody is the unmodified response body text.
	RawBody string

	// Retryable is true for statuses 408, 429 and 5xx.
	Retryable bool
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("memory service error [HTTP %d]: %s", e.StatusCode, e.Message)
}

// IsRetryable returns true if the call may be re-attempted.
func (e *APIError) IsRetryable() bool { return e.Retryable }

// ErrorType classifies the failure for callers that branch on category.
func (e *APIError) ErrorType() string {
	switch {
	case e.StatusCode == 401 || e.StatusCode == 403:
		return "auth"
	case e.StatusCode == 404:
		return "not_found"
	case e.StatusCode == 408:
		return "timeout"
	case e.StatusCode == 429:
		return "rate_limited"
	case e.StatusCode >= 500:
		return "server"
	default:
		return "client"
	}
}

// IsUserVisible implements pkg/errors.UserVisibleError.
func (e *APIError) IsUserVisible() bool { return true }

// UserMessage implements pkg/errors.UserVisibleError.
func (e *APIError) UserMessage() string { return e.Message }

// Suggestion implements pkg/errors.UserVisibleError.
func (e *APIError) Suggestion() string {
	switch e.ErrorType() {
	case "auth":
		return "check that the configured API key is valid"
	case "not_found":
		return "the memory may be empty; ingest content before querying"
	case "rate_limited":
		return "slow down and retry in a moment"
	case "server":
		return "the service is having trouble; retry later"
	default:
		return ""
	}
}

// TransportError is a network-level failure produced before a response was
// obtained: connection errors, aborted requests, per-attempt timeouts.
type TransportError struct {
	// Op names the operation being attempted (connect, ingest, query).
	Op string

	// Timeout is true when the per-attempt timer fired.
	Timeout bool

	// Retryable is false only when the caller's own context ended.
	Retryable bool

	// Cause is the underlying error.
	Cause error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	verb := "request failed"
	if e.Timeout {
		verb = "request timed out"
	}
	if e.Op != "" {
		return fmt.Sprintf("%s: %s: %v", e.Op, verb, e.Cause)
	}
	return fmt.Sprintf("%s: %v", verb, e.Cause)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *TransportError) Unwrap() error { return e.Cause }

// IsRetryable returns true if the call may be re-attempted.
func (e *TransportError) IsRetryable() bool { return e.Retryable }

// ErrorType classifies the failure for callers that branch on category.
func (e *TransportError) ErrorType() string {
	if e.Timeout {
		return "timeout"
	}
	return "connection"
}
