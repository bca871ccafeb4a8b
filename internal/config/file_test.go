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
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

// clearEnv shields a test from override variables in the ambient
// environment.
func clearEnv(t *testing.T) {
	t.Helper()
	t.Setenv(EnvBaseURL, "")
	t.Setenv(EnvAPIKey, "")
}

func TestLoad_TopLevelConfig(t *testing.T) {
	clearEnv(t)
	path := writeConfigFile(t, `
baseUrl: https://memory.example.com/
apiKey: sk-file
http:
  timeoutMs: 2000
  retries: 1
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://memory.example.com", cfg.BaseURL)
	assert.Equal(t, "sk-file", cfg.APIKey)
	assert.Equal(t, 2*time.Second, cfg.HTTP.Timeout)
	assert.Equal(t, 1, cfg.HTTP.Retries)
}

func TestLoad_NestedUnderPluginEntry(t *testing.T) {
	clearEnv(t)
	path := writeConfigFile(t, `
plugins:
  entries:
    mindlink:
      config:
        baseUrl: https://memory.example.com
        apiKey: sk-nested
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "sk-nested", cfg.APIKey)
}

func TestLoad_EnvOverridesFileValues(t *testing.T) {
	path := writeConfigFile(t, `
plugins:
  entries:
    mindlink:
      config:
        baseUrl: https://file.example.com
        apiKey: sk-file
        http:
          retries: 5
`)
	t.Setenv(EnvBaseURL, "https://env.example.com")
	t.Setenv(EnvAPIKey, "sk-env")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://env.example.com", cfg.BaseURL)
	assert.Equal(t, "sk-env", cfg.APIKey)
	// Non-overridden nested values survive the merge.
	assert.Equal(t, 5, cfg.HTTP.Retries)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoad_MalformedYAML(t *testing.T) {
	path := writeConfigFile(t, "baseUrl: [unclosed")
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadDefault_EnvOnly(t *testing.T) {
	// Point the config path at a file that does not exist so only the
	// environment supplies the configuration.
	t.Setenv(EnvConfigPath, filepath.Join(t.TempDir(), "absent.yaml"))
	t.Setenv(EnvBaseURL, "https://env.example.com")
	t.Setenv(EnvAPIKey, "sk-env")

	cfg, err := LoadDefault()
	require.NoError(t, err)
	assert.Equal(t, "https://env.example.com", cfg.BaseURL)
	assert.Equal(t, "sk-env", cfg.APIKey)
}

func TestLoadDefault_ExplicitPath(t *testing.T) {
	clearEnv(t)
	path := writeConfigFile(t, `
baseUrl: https://memory.example.com
apiKey: sk-file
`)
	t.Setenv(EnvConfigPath, path)

	cfg, err := LoadDefault()
	require.NoError(t, err)
	assert.Equal(t, "sk-file", cfg.APIKey)
}

func TestLoadDefault_NoFileNoEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvConfigPath, filepath.Join(t.TempDir(), "absent.yaml"))

	_, err := LoadDefault()
	require.Error(t, err, "no file and no env vars cannot yield a usable config")
}

func TestConfigDir_RespectsXDG(t *testing.T) {
	base := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", base)

	dir, err := ConfigDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(base, "mindlink"), dir)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
