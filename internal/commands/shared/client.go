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

package shared

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/tombee/mindlink/internal/config"
	"github.com/tombee/mindlink/internal/log"
	"github.com/tombee/mindlink/pkg/mind"
)

// LoadConfig resolves the runtime configuration from an explicit path or
// the default locations.
func LoadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	return config.LoadDefault()
}

// NewClient builds the remote client for CLI commands.
func NewClient(cfg *config.Config) *mind.Client {
	v, _, _ := GetVersion()
	return mind.NewClient(cfg.Client(),
		mind.WithLogger(log.WithComponent(log.New(log.FromEnv()), "client")),
		mind.WithUserAgent("mindlink/"+v),
	)
}

// PrintJSON writes a response payload to the command's stdout as
// indented JSON.
func PrintJSON(cmd *cobra.Command, payload any) error {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return err
	}
	cmd.Println(string(data))
	return nil
}
