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

// Package config resolves the mindlink runtime configuration from a
// loosely-structured host configuration object.
//
// Hosting systems hand plugins their configuration under varying nesting
// conventions, so Resolve tries an ordered list of extraction strategies
// before validating fields and normalizing the base URL. The resolved
// Config is immutable and reconstructed fresh per invocation context.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/tombee/mindlink/pkg/mind"
)

// ErrInvalidConfig is matched by every configuration failure via errors.Is.
var ErrInvalidConfig = errors.New("config: invalid configuration")

// Defaults applied when optional fields are absent.
const (
	DefaultMindState   = mind.MindStateAuto
	DefaultMaxTokens   = 512
	DefaultTemperature = 0.2
	DefaultTimeout     = 30 * time.Second
	DefaultRetries     = 2

	MinTimeout = 1 * time.Second
	MaxTimeout = 120 * time.Second
	MinRetries = 0
	MaxRetries = 5
)

// Config is the resolved, validated runtime configuration.
type Config struct {
	// BaseURL is the normalized service URL: origin plus optional path
	// prefix, no trailing slash, no /intelligence suffix.
	BaseURL string

	// APIKey authenticates every request. Opaque, never logged.
	APIKey string

	// AllowHTTP permits a plain-HTTP base URL. Off by default.
	AllowHTTP bool

	// Defaults fill unset optional query fields.
	Defaults Defaults

	// HTTP is the client timeout and retry policy.
	HTTP HTTPConfig
}

// Defaults configures fallback values for query operations.
type Defaults struct {
	MindState   mind.MindState
	MaxTokens   int
	Temperature float64
}

// HTTPConfig bounds each remote call.
type HTTPConfig struct {
	// Timeout bounds one attempt.
	Timeout time.Duration

	// Retries is the number of re-attempts after the initial try.
	Retries int
}

// Client converts the resolved configuration into the client's view of it.
func (c *Config) Client() mind.ClientConfig {
	return mind.ClientConfig{
		BaseURL: c.BaseURL,
		APIKey:  c.APIKey,
		Timeout: c.HTTP.Timeout,
		Retries: c.HTTP.Retries,
		Defaults: mind.QueryDefaults{
			MindState:   c.Defaults.MindState,
			MaxTokens:   c.Defaults.MaxTokens,
			Temperature: c.Defaults.Temperature,
		},
	}
}

// Redacted returns a copy with the API key masked, for status output and logs.
func (c *Config) Redacted() Config {
	out := *c
	if out.APIKey != "" {
		out.APIKey = "[REDACTED]"
	}
	return out
}

// ConfigError reports a malformed or insecure configuration field.
type ConfigError struct {
	// Field is the offending configuration key (e.g. "baseUrl").
	Field string

	// Message explains what is wrong.
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
	}
	return "config: " + e.Message
}

// Is matches the ErrInvalidConfig sentinel.
func (e *ConfigError) Is(target error) bool {
	return target == ErrInvalidConfig
}

// IsUserVisible implements pkg/errors.UserVisibleError.
func (e *ConfigError) IsUserVisible() bool { return true }

// UserMessage implements pkg/errors.UserVisibleError.
func (e *ConfigError) UserMessage() string { return e.Error() }

// Suggestion implements pkg/errors.UserVisibleError.
func (e *ConfigError) Suggestion() string {
	switch e.Field {
	case "baseUrl":
		return "set baseUrl to the https:// URL of the memory service"
	case "apiKey":
		return "set apiKey to the API key issued by the memory service"
	default:
		return ""
	}
}
