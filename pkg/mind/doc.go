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

// Package mind implements the client for the remote memory service.
//
// The package covers three concerns:
//   - Request types and validators for the three remote operations
//     (connect, ingest, query), accepting both camelCase and snake_case
//     field spellings from loosely-typed tool arguments.
//   - A resilient HTTP client that maps each operation to its API path,
//     applies per-attempt timeouts and bounded exponential backoff, and
//     classifies failures as retryable or terminal.
//   - Defensive response handling: remote payloads are open-ended JSON
//     objects read through tolerant accessors, and a non-JSON body is
//     returned as a raw-text payload rather than an error.
//
// Each call is stateless; the client holds no mutable per-call state and
// may be shared across goroutines.
package mind
