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
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// PluginID identifies this plugin inside host configuration containers.
const PluginID = "mindlink"

// Environment variables honored by Load and LoadDefault.
const (
	EnvConfigPath = "MINDLINK_CONFIG"
	EnvBaseURL    = "MINDLINK_BASE_URL"
	EnvAPIKey     = "MINDLINK_API_KEY"
)

// ConfigDir returns the XDG config directory for mindlink, creating it if
// needed. Respects XDG_CONFIG_HOME; defaults to ~/.config/mindlink.
func ConfigDir() (string, error) {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".config")
	}

	dir := filepath.Join(base, "mindlink")
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", err
	}
	return dir, nil
}

// ConfigPath returns the default config file path.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Load reads a YAML config file, applies environment overrides and resolves
// it. The file may contain the config at the top level or under any of the
// host nesting conventions Resolve understands.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, &ConfigError{Message: fmt.Sprintf("parsing %s: %v", path, err)}
	}
	if raw == nil {
		raw = map[string]any{}
	}

	// Extract first so environment overrides apply to the section the host
	// actually nested the config under.
	section := extract(raw, PluginID)
	merged := make(map[string]any, len(section)+2)
	for k, v := range section {
		merged[k] = v
	}
	applyEnvOverrides(merged)
	return Resolve(merged, PluginID)
}

// LoadDefault loads the config from $MINDLINK_CONFIG or from the XDG
// config path. When no file exists, environment variables alone may still
// supply a complete configuration.
func LoadDefault() (*Config, error) {
	path := os.Getenv(EnvConfigPath)
	if path == "" {
		var err error
		path, err = ConfigPath()
		if err != nil {
			return nil, err
		}
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		raw := map[string]any{}
		applyEnvOverrides(raw)
		return Resolve(raw, PluginID)
	}
	return Load(path)
}

// applyEnvOverrides lets MINDLINK_BASE_URL and MINDLINK_API_KEY override
// the file-supplied values.
func applyEnvOverrides(raw map[string]any) {
	if v := os.Getenv(EnvBaseURL); v != "" {
		raw["baseUrl"] = v
	}
	if v := os.Getenv(EnvAPIKey); v != "" {
		raw["apiKey"] = v
	}
}
