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

package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/tombee/mindlink/pkg/mind"
)

// Resolve extracts, validates and normalizes the plugin configuration from
// an arbitrarily-nested host configuration object. It is a pure function of
// its input.
func Resolve(raw map[string]any, pluginID string) (*Config, error) {
	section := extract(raw, pluginID)

	cfg := &Config{
		Defaults: Defaults{
			MindState:   DefaultMindState,
			MaxTokens:   DefaultMaxTokens,
			Temperature: DefaultTemperature,
		},
		HTTP: HTTPConfig{
			Timeout: DefaultTimeout,
			Retries: DefaultRetries,
		},
	}

	r := reader{m: section}

	baseURL, ok := r.str("baseUrl", "base_url")
	if !ok || baseURL == "" {
		return nil, &ConfigError{Field: "baseUrl", Message: "is required"}
	}
	apiKey, ok := r.str("apiKey", "api_key")
	if !ok || apiKey == "" {
		return nil, &ConfigError{Field: "apiKey", Message: "is required and must be a non-empty string"}
	}
	cfg.APIKey = apiKey

	if v, present, ok := r.boolean("allowHttp", "allow_http"); present {
		if !ok {
			return nil, &ConfigError{Field: "allowHttp", Message: "must be a boolean"}
		}
		cfg.AllowHTTP = v
	}

	if defaults, present, ok := r.object("defaults", "defaults"); present {
		if !ok {
			return nil, &ConfigError{Field: "defaults", Message: "must be an object"}
		}
		if err := readDefaults(defaults, &cfg.Defaults); err != nil {
			return nil, err
		}
	}

	if httpSection, present, ok := r.object("http", "http"); present {
		if !ok {
			return nil, &ConfigError{Field: "http", Message: "must be an object"}
		}
		if err := readHTTP(httpSection, &cfg.HTTP); err != nil {
			return nil, err
		}
	}

	normalized, err := normalizeBaseURL(baseURL)
	if err != nil {
		return nil, err
	}
	if !strings.HasPrefix(normalized, "https://") && !cfg.AllowHTTP {
		return nil, &ConfigError{
			Field:   "baseUrl",
			Message: "insecure http:// URL; set allowHttp: true to permit it",
		}
	}
	cfg.BaseURL = normalized

	return cfg, nil
}

// extract locates the actual configuration object inside the host
// container. Strategies run in order, each pure and total; the first
// structurally-plausible match wins:
//  1. the object itself, if it already looks like a config
//  2. a nested pluginConfig field
//  3. the plugins.entries.<pluginID>.config path
//  4. the raw object as a fallback
func extract(raw map[string]any, pluginID string) map[string]any {
	for _, strategy := range []func(map[string]any, string) (map[string]any, bool){
		extractSelf,
		extractPluginConfig,
		extractPluginEntry,
	} {
		if section, ok := strategy(raw, pluginID); ok {
			return section
		}
	}
	return raw
}

func extractSelf(raw map[string]any, _ string) (map[string]any, bool) {
	if looksLikeConfig(raw) {
		return raw, true
	}
	return nil, false
}

func extractPluginConfig(raw map[string]any, _ string) (map[string]any, bool) {
	section, ok := childObject(raw, "pluginConfig", "plugin_config")
	if ok && looksLikeConfig(section) {
		return section, true
	}
	return nil, false
}

func extractPluginEntry(raw map[string]any, pluginID string) (map[string]any, bool) {
	plugins, ok := childObject(raw, "plugins", "plugins")
	if !ok {
		return nil, false
	}
	entries, ok := childObject(plugins, "entries", "entries")
	if !ok {
		return nil, false
	}
	entry, ok := childObject(entries, pluginID, pluginID)
	if !ok {
		return nil, false
	}
	section, ok := childObject(entry, "config", "config")
	if !ok {
		return nil, false
	}
	return section, true
}

// looksLikeConfig reports whether the object carries either credential the
// schema requires, in either spelling.
func looksLikeConfig(m map[string]any) bool {
	for _, key := range []string{"baseUrl", "base_url", "apiKey", "api_key"} {
		if _, ok := m[key]; ok {
			return true
		}
	}
	return false
}

func childObject(m map[string]any, keys ...string) (map[string]any, bool) {
	for _, key := range keys {
		if child, ok := m[key].(map[string]any); ok {
			return child, true
		}
	}
	return nil, false
}

// reader pulls loosely-typed values out of the config section, accepting
// both camelCase and snake_case spellings.
type reader struct {
	m map[string]any
}

func (r reader) lookup(camel, snake string) (any, bool) {
	if v, ok := r.m[camel]; ok {
		return v, true
	}
	if v, ok := r.m[snake]; ok {
		return v, true
	}
	return nil, false
}

func (r reader) str(camel, snake string) (string, bool) {
	v, ok := r.lookup(camel, snake)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// boolean returns (value, present, well-typed).
func (r reader) boolean(camel, snake string) (bool, bool, bool) {
	v, ok := r.lookup(camel, snake)
	if !ok {
		return false, false, false
	}
	b, ok := v.(bool)
	return b, true, ok
}

// object returns (value, present, well-typed).
func (r reader) object(camel, snake string) (map[string]any, bool, bool) {
	v, ok := r.lookup(camel, snake)
	if !ok {
		return nil, false, false
	}
	m, ok := v.(map[string]any)
	return m, true, ok
}

func readDefaults(section map[string]any, out *Defaults) error {
	r := reader{m: section}

	if s, ok := r.lookup("mindState", "mind_state"); ok {
		str, isStr := s.(string)
		state := mind.MindState(str)
		if !isStr || !state.IsValid() {
			return &ConfigError{Field: "defaults.mindState", Message: "must be one of auto, short_term, mid_term, long_term"}
		}
		out.MindState = state
	}

	if v, ok := r.lookup("maxTokens", "max_tokens"); ok {
		n, err := asInt(v)
		if err != nil || n < mind.MinMaxTokens || n > mind.MaxMaxTokens {
			return &ConfigError{
				Field:   "defaults.maxTokens",
				Message: fmt.Sprintf("must be an integer between %d and %d", mind.MinMaxTokens, mind.MaxMaxTokens),
			}
		}
		out.MaxTokens = n
	}

	if v, ok := r.lookup("temperature", "temperature"); ok {
		f, err := asFloat(v)
		if err != nil || f < mind.MinTemperature || f > mind.MaxTemperature {
			return &ConfigError{
				Field:   "defaults.temperature",
				Message: fmt.Sprintf("must be a number between %.1f and %.1f", mind.MinTemperature, mind.MaxTemperature),
			}
		}
		out.Temperature = f
	}

	return nil
}

func readHTTP(section map[string]any, out *HTTPConfig) error {
	r := reader{m: section}

	if v, ok := r.lookup("timeoutMs", "timeout_ms"); ok {
		n, err := asInt(v)
		if err != nil || n < int(MinTimeout.Milliseconds()) || n > int(MaxTimeout.Milliseconds()) {
			return &ConfigError{
				Field:   "http.timeoutMs",
				Message: fmt.Sprintf("must be an integer between %d and %d", MinTimeout.Milliseconds(), MaxTimeout.Milliseconds()),
			}
		}
		out.Timeout = time.Duration(n) * time.Millisecond
	}

	if v, ok := r.lookup("retries", "retries"); ok {
		n, err := asInt(v)
		if err != nil || n < MinRetries || n > MaxRetries {
			return &ConfigError{
				Field:   "http.retries",
				Message: fmt.Sprintf("must be an integer between %d and %d", MinRetries, MaxRetries),
			}
		}
		out.Retries = n
	}

	return nil
}

func asInt(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		if n != float64(int(n)) {
			return 0, fmt.Errorf("not an integer")
		}
		return int(n), nil
	case json.Number:
		i, err := n.Int64()
		return int(i), err
	default:
		return 0, fmt.Errorf("not an integer")
	}
}

func asFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case json.Number:
		return n.Float64()
	default:
		return 0, fmt.Errorf("not a number")
	}
}

// normalizeBaseURL parses and canonicalizes the configured URL. An empty
// path, a bare slash or the /intelligence landing-page path collapse to the
// origin; any other path keeps origin + path with trailing slashes
// stripped. Users commonly paste a product landing-page URL whose API
// lives at the bare origin.
func normalizeBaseURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return "", &ConfigError{Field: "baseUrl", Message: "must be an absolute URL"}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", &ConfigError{Field: "baseUrl", Message: "scheme must be http or https"}
	}

	origin := u.Scheme + "://" + u.Host
	path := strings.TrimRight(u.Path, "/")
	if path == "" || path == "/intelligence" {
		return origin, nil
	}
	return origin + path, nil
}
