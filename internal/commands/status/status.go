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

package status

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tombee/mindlink/internal/commands/shared"
	mindlinkerrors "github.com/tombee/mindlink/pkg/errors"
	"github.com/tombee/mindlink/pkg/mind"
)

// NewCommand creates the status command.
func NewCommand() *cobra.Command {
	var (
		configPath string
		jsonOutput bool
		ping       bool
		pingUser   string
	)

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the resolved configuration",
		Long: `Resolve and display the mindlink configuration with secrets redacted.

With --ping, issue a connect round-trip against the memory service to
verify the base URL and API key actually work.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd, configPath, jsonOutput, ping, pingUser)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "Path to the config file")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().BoolVar(&ping, "ping", false, "Verify connectivity with a connect call")
	cmd.Flags().StringVar(&pingUser, "ping-user", "mindlink-status-check", "External user ID used by --ping")

	return cmd
}

func runStatus(cmd *cobra.Command, configPath string, jsonOutput, ping bool, pingUser string) error {
	cfg, err := shared.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("%s", mindlinkerrors.UserString(err))
	}
	redacted := cfg.Redacted()

	if jsonOutput {
		payload := map[string]any{
			"base_url":           redacted.BaseURL,
			"api_key":            redacted.APIKey,
			"allow_http":         redacted.AllowHTTP,
			"default_mind_state": string(redacted.Defaults.MindState),
			"default_max_tokens": redacted.Defaults.MaxTokens,
			"timeout_ms":         redacted.HTTP.Timeout.Milliseconds(),
			"retries":            redacted.HTTP.Retries,
		}
		data, err := json.MarshalIndent(payload, "", "  ")
		if err != nil {
			return err
		}
		cmd.Println(string(data))
	} else {
		cmd.Printf("base url:    %s\n", redacted.BaseURL)
		cmd.Printf("api key:     %s\n", redacted.APIKey)
		cmd.Printf("mind state:  %s\n", redacted.Defaults.MindState)
		cmd.Printf("max tokens:  %d\n", redacted.Defaults.MaxTokens)
		cmd.Printf("timeout:     %s\n", redacted.HTTP.Timeout)
		cmd.Printf("retries:     %d\n", redacted.HTTP.Retries)
	}

	if !ping {
		return nil
	}

	client := shared.NewClient(cfg)
	resp, err := client.Connect(cmd.Context(), &mind.ConnectRequest{EndUserExternalID: pingUser})
	if err != nil {
		return fmt.Errorf("ping failed: %s", mindlinkerrors.UserString(err))
	}
	if connectionID, ok := resp.String("connection_id"); ok {
		cmd.Printf("ping:        ok (connection_id %s)\n", connectionID)
	} else {
		cmd.Println("ping:        ok")
	}
	return nil
}
