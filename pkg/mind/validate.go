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
	"encoding/json"
	"fmt"
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Alias tables map each canonical camelCase field name to its accepted
// snake_case spelling. Aliases are resolved before any constraint runs so
// both spellings share one constraint set. When both spellings are present
// the canonical one wins.
var (
	connectAliases = map[string]string{
		"endUserExternalId": "end_user_external_id",
		"email":             "email",
		"metadata":          "metadata",
	}

	ingestAliases = map[string]string{
		"connectionId":      "connection_id",
		"endUserExternalId": "end_user_external_id",
		"email":             "email",
		"name":              "name",
		"text":              "text",
		"type":              "type",
		"ref":               "ref",
		"metadata":          "metadata",
	}

	queryAliases = map[string]string{
		"question":          "question",
		"connectionId":      "connection_id",
		"endUserExternalId": "end_user_external_id",
		"mindState":         "mind_state",
		"providers":         "providers",
		"include":           "include",
		"maxTokens":         "max_tokens",
		"temperature":       "temperature",
	}

	includeAliases = map[string]string{
		"evidence":  "evidence",
		"precision": "precision",
		"citations": "citations",
		"reconcile": "reconcile",
	}
)

// resolveAliases rewrites the input under canonical keys only.
func resolveAliases(args map[string]any, aliases map[string]string) map[string]any {
	out := make(map[string]any, len(args))
	for canonical, snake := range aliases {
		if v, ok := args[canonical]; ok {
			out[canonical] = v
		} else if v, ok := args[snake]; ok {
			out[canonical] = v
		}
	}
	return out
}

// fields wraps a canonicalized argument map and collects type violations
// as values are pulled out of it.
type fields struct {
	m    map[string]any
	verr *ValidationError
}

func newFields(args map[string]any, aliases map[string]string) *fields {
	return &fields{m: resolveAliases(args, aliases), verr: &ValidationError{}}
}

func (f *fields) str(key string) string {
	v, ok := f.m[key]
	if !ok || v == nil {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		f.verr.add(key, "must be a string")
		return ""
	}
	return s
}

func (f *fields) integer(key string) int {
	v, ok := f.m[key]
	if !ok || v == nil {
		return 0
	}
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		if n != float64(int(n)) {
			f.verr.add(key, "must be an integer")
			return 0
		}
		return int(n)
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			f.verr.add(key, "must be an integer")
			return 0
		}
		return int(i)
	default:
		f.verr.add(key, "must be an integer")
		return 0
	}
}

func (f *fields) float(key string) *float64 {
	v, ok := f.m[key]
	if !ok || v == nil {
		return nil
	}
	var out float64
	switch n := v.(type) {
	case float64:
		out = n
	case int:
		out = float64(n)
	case int64:
		out = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			f.verr.add(key, "must be a number")
			return nil
		}
		out = parsed
	default:
		f.verr.add(key, "must be a number")
		return nil
	}
	return &out
}

func (f *fields) object(key string) map[string]any {
	v, ok := f.m[key]
	if !ok || v == nil {
		return nil
	}
	m, ok := v.(map[string]any)
	if !ok {
		f.verr.add(key, "must be an object")
		return nil
	}
	return m
}

func (f *fields) strings(key string) []string {
	v, ok := f.m[key]
	if !ok || v == nil {
		return nil
	}
	switch list := v.(type) {
	case []string:
		return list
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			s, ok := item.(string)
			if !ok {
				f.verr.add(key, "must be a list of strings")
				return nil
			}
			out = append(out, s)
		}
		return out
	default:
		f.verr.add(key, "must be a list of strings")
		return nil
	}
}

func (f *fields) boolean(obj map[string]any, key, path string) bool {
	v, ok := obj[key]
	if !ok || v == nil {
		return false
	}
	b, ok := v.(bool)
	if !ok {
		f.verr.add(path, "must be a boolean")
		return false
	}
	return b
}

// ParseConnectRequest resolves aliases, coerces types and validates a
// connect call shape.
func ParseConnectRequest(args map[string]any) (*ConnectRequest, error) {
	f := newFields(args, connectAliases)
	req := &ConnectRequest{
		EndUserExternalID: f.str("endUserExternalId"),
		Email:             f.str("email"),
		Metadata:          f.object("metadata"),
	}
	if err := f.verr.errOrNil(); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return req, nil
}

// Validate checks field constraints on a connect request.
func (r *ConnectRequest) Validate() error {
	verr := &ValidationError{}
	if strings.TrimSpace(r.EndUserExternalID) == "" {
		verr.add("endUserExternalId", "is required and must be non-empty")
	}
	checkEmail(verr, r.Email)
	return verr.errOrNil()
}

// ParseIngestRequest resolves aliases, coerces types and validates an
// ingest call shape. A missing type defaults to raw_text.
func ParseIngestRequest(args map[string]any) (*IngestRequest, error) {
	f := newFields(args, ingestAliases)
	req := &IngestRequest{
		ConnectionID:      f.str("connectionId"),
		EndUserExternalID: f.str("endUserExternalId"),
		Email:             f.str("email"),
		Name:              f.str("name"),
		Text:              f.str("text"),
		Type:              IngestType(f.str("type")),
		Ref:               f.str("ref"),
		Metadata:          f.object("metadata"),
	}
	if err := f.verr.errOrNil(); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return req, nil
}

// Validate checks field constraints on an ingest request and applies the
// raw_text default. Missing both connectionId and endUserExternalId is a
// single composite violation.
func (r *IngestRequest) Validate() error {
	verr := &ValidationError{}
	checkConnectionTarget(verr, r.ConnectionID, r.EndUserExternalID)
	checkEmail(verr, r.Email)

	if n := utf8.RuneCountInString(r.Name); n < 1 || n > MaxNameLength {
		verr.add("name", fmt.Sprintf("must be 1-%d characters", MaxNameLength))
	}
	if n := utf8.RuneCountInString(r.Text); n < MinTextLength || n > MaxTextLength {
		verr.add("text", fmt.Sprintf("must be %d-%d characters", MinTextLength, MaxTextLength))
	}
	if r.Type == "" {
		r.Type = IngestTypeRawText
	} else if !r.Type.IsValid() {
		verr.add("type", "must be one of "+joinIngestTypes())
	}
	return verr.errOrNil()
}

// ParseQueryRequest resolves aliases, coerces types and validates a query
// call shape.
func ParseQueryRequest(args map[string]any) (*QueryRequest, error) {
	f := newFields(args, queryAliases)
	req := &QueryRequest{
		Question:          f.str("question"),
		ConnectionID:      f.str("connectionId"),
		EndUserExternalID: f.str("endUserExternalId"),
		MindState:         MindState(f.str("mindState")),
		Providers:         f.strings("providers"),
		MaxTokens:         f.integer("maxTokens"),
		Temperature:       f.float("temperature"),
	}
	if include := f.object("include"); include != nil {
		resolved := resolveAliases(include, includeAliases)
		req.Include = &IncludeOptions{
			Evidence:  f.boolean(resolved, "evidence", "include.evidence"),
			Precision: f.boolean(resolved, "precision", "include.precision"),
			Citations: f.boolean(resolved, "citations", "include.citations"),
			Reconcile: f.boolean(resolved, "reconcile", "include.reconcile"),
		}
	}
	if err := f.verr.errOrNil(); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return req, nil
}

// Validate checks field constraints on a query request. Missing both
// connectionId and endUserExternalId is a single composite violation.
func (r *QueryRequest) Validate() error {
	verr := &ValidationError{}
	if n := utf8.RuneCountInString(r.Question); n < 1 || n > MaxQuestionLength {
		verr.add("question", fmt.Sprintf("must be 1-%d characters", MaxQuestionLength))
	}
	checkConnectionTarget(verr, r.ConnectionID, r.EndUserExternalID)
	if r.MindState != "" && !r.MindState.IsValid() {
		verr.add("mindState", "must be one of "+joinMindStates())
	}
	for i, p := range r.Providers {
		if strings.TrimSpace(p) == "" {
			verr.add(fmt.Sprintf("providers[%d]", i), "must be non-empty")
		}
	}
	if r.MaxTokens != 0 && (r.MaxTokens < MinMaxTokens || r.MaxTokens > MaxMaxTokens) {
		verr.add("maxTokens", fmt.Sprintf("must be %d-%d", MinMaxTokens, MaxMaxTokens))
	}
	if r.Temperature != nil && (*r.Temperature < MinTemperature || *r.Temperature > MaxTemperature) {
		verr.add("temperature", fmt.Sprintf("must be %.1f-%.1f", MinTemperature, MaxTemperature))
	}
	return verr.errOrNil()
}

// checkConnectionTarget enforces the cross-field rule shared by ingest and
// query: at least one of connectionId and endUserExternalId must be set.
// A present connectionId must be a UUID.
func checkConnectionTarget(verr *ValidationError, connectionID, endUserExternalID string) {
	if connectionID == "" && strings.TrimSpace(endUserExternalID) == "" {
		verr.add("connectionId/endUserExternalId", "at least one is required")
		return
	}
	if connectionID != "" {
		if _, err := uuid.Parse(connectionID); err != nil {
			verr.add("connectionId", "must be a valid UUID")
		}
	}
	if endUserExternalID != "" && strings.TrimSpace(endUserExternalID) == "" {
		verr.add("endUserExternalId", "must be non-empty")
	}
}

func checkEmail(verr *ValidationError, email string) {
	if email == "" {
		return
	}
	if _, err := mail.ParseAddress(email); err != nil {
		verr.add("email", "must be a valid email address")
	}
}

func joinMindStates() string {
	parts := make([]string, len(ValidMindStates))
	for i, s := range ValidMindStates {
		parts[i] = string(s)
	}
	return strings.Join(parts, ", ")
}

func joinIngestTypes() string {
	parts := make([]string, len(ValidIngestTypes))
	for i, t := range ValidIngestTypes {
		parts[i] = string(t)
	}
	return strings.Join(parts, ", ")
}
