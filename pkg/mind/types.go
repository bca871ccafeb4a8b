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

// MindState is a retrieval-strategy hint sent with query operations.
type MindState string

const (
	MindStateAuto      MindState = "auto"
	MindStateShortTerm MindState = "short_term"
	MindStateMidTerm   MindState = "mid_term"
	MindStateLongTerm  MindState = "long_term"
)

// ValidMindStates lists the accepted mind state values.
var ValidMindStates = []MindState{
	MindStateAuto,
	MindStateShortTerm,
	MindStateMidTerm,
	MindStateLongTerm,
}

// IsValid returns true if the mind state is one of the known values.
func (s MindState) IsValid() bool {
	for _, v := range ValidMindStates {
		if s == v {
			return true
		}
	}
	return false
}

// IngestType classifies content handed to the ingest operation.
type IngestType string

const (
	IngestTypeRawText    IngestType = "raw_text"
	IngestTypeMarkdown   IngestType = "markdown"
	IngestTypeTranscript IngestType = "transcript"
	IngestTypeEmail      IngestType = "email"
	IngestTypeDocument   IngestType = "document"
)

// ValidIngestTypes lists the accepted ingest content types.
var ValidIngestTypes = []IngestType{
	IngestTypeRawText,
	IngestTypeMarkdown,
	IngestTypeTranscript,
	IngestTypeEmail,
	IngestTypeDocument,
}

// IsValid returns true if the ingest type is one of the known values.
func (t IngestType) IsValid() bool {
	for _, v := range ValidIngestTypes {
		if t == v {
			return true
		}
	}
	return false
}

// Field length constraints enforced by the validators.
const (
	MaxNameLength     = 255
	MinTextLength     = 100
	MaxTextLength     = 10_000_000
	MaxQuestionLength = 100_000
	MinMaxTokens      = 1
	MaxMaxTokens      = 4096
	MinTemperature    = 0.0
	MaxTemperature    = 2.0
)

// ConnectRequest associates an external end-user identifier with a remote
// memory store.
type ConnectRequest struct {
	// EndUserExternalID identifies the end user on the caller's side. Required.
	EndUserExternalID string

	// Email is an optional address attached to the connection.
	Email string

	// Metadata is an opaque key-value map passed through to the service.
	Metadata map[string]any
}

// IngestRequest stores a piece of content in the remote memory.
// At least one of ConnectionID and EndUserExternalID must be set.
type IngestRequest struct {
	// ConnectionID is a connection UUID returned by a prior connect call.
	ConnectionID string

	// EndUserExternalID identifies the end user when no connection ID is known.
	EndUserExternalID string

	// Email is an optional address; validated but not transmitted.
	Email string

	// Name labels the content. Required, 1-255 characters.
	Name string

	// Text is the content body. Required, 100-10,000,000 characters.
	Text string

	// Type classifies the content. Defaults to raw_text.
	Type IngestType

	// Ref is an optional caller-side reference for the content.
	Ref string

	// Metadata is an opaque key-value map passed through to the service.
	Metadata map[string]any
}

// IncludeOptions toggles optional sections of a query response.
type IncludeOptions struct {
	Evidence  bool
	Precision bool
	Citations bool
	Reconcile bool
}

// QueryRequest asks the remote memory a question.
// At least one of ConnectionID and EndUserExternalID must be set.
type QueryRequest struct {
	// Question is the text of the query. Required, 1-100,000 characters.
	Question string

	// ConnectionID is a connection UUID returned by a prior connect call.
	ConnectionID string

	// EndUserExternalID identifies the end user when no connection ID is known.
	EndUserExternalID string

	// MindState hints the retrieval strategy. Empty means the configured default.
	MindState MindState

	// Providers restricts which memory providers are consulted.
	Providers []string

	// Include toggles optional response sections.
	Include *IncludeOptions

	// MaxTokens bounds the answer size (1-4096). Zero means the configured default.
	MaxTokens int

	// Temperature controls answer sampling (0.0-2.0). Nil means the
	// configured default; zero is a meaningful value.
	Temperature *float64
}

// RawBodyKey is the key under which a non-JSON response body is exposed.
const RawBodyKey = "raw"

// Response is an open-ended payload returned by the remote service.
// Known fields are read through the accessors; absence or a wrong type is
// tolerated, never fatal.
type Response map[string]any

// String returns the string value at key, if present and a string.
func (r Response) String(key string) (string, bool) {
	v, ok := r[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Bool returns the bool value at key, if present and a bool.
func (r Response) Bool(key string) (bool, bool) {
	v, ok := r[key]
	if !ok {
		return false, false
	}
	b, ok := v.(bool)
	return b, ok
}

// Map returns the object value at key, if present and an object.
func (r Response) Map(key string) (map[string]any, bool) {
	v, ok := r[key]
	if !ok {
		return nil, false
	}
	m, ok := v.(map[string]any)
	return m, ok
}

// NestedString walks a path of object keys and returns the string at the
// leaf, tolerating any missing or mis-typed step along the way.
func (r Response) NestedString(path ...string) (string, bool) {
	if len(path) == 0 {
		return "", false
	}
	cur := map[string]any(r)
	for _, key := range path[:len(path)-1] {
		next, ok := cur[key].(map[string]any)
		if !ok {
			return "", false
		}
		cur = next
	}
	s, ok := cur[path[len(path)-1]].(string)
	return s, ok
}

// Raw returns the raw text body for responses that did not parse as JSON.
func (r Response) Raw() (string, bool) {
	return r.String(RawBodyKey)
}

// Success reports the response's own success flag. A missing or mis-typed
// flag counts as success; a 2xx status already established it.
func (r Response) Success() bool {
	if v, ok := r.Bool("success"); ok {
		return v
	}
	return true
}
