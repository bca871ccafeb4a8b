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

package connect

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tombee/mindlink/internal/commands/shared"
	mindlinkerrors "github.com/tombee/mindlink/pkg/errors"
	"github.com/tombee/mindlink/pkg/mind"
)

// NewCommand creates the connect command.
func NewCommand() *cobra.Command {
	var (
		configPath string
		user       string
		email      string
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "connect",
		Short: "Register an end user with the memory service",
		Long: `Register an end user with the memory service and obtain a connection ID.

The connection ID returned here can be passed to ingest and query to
address the user's memory directly.`,
		Example: `  # Register a user by external ID
  mindlink connect --user alice@example.com

  # Register with a contact email for the memory service
  mindlink connect --user alice-1234 --email alice@example.com`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConnect(cmd, configPath, user, email, jsonOutput)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "Path to the config file")
	cmd.Flags().StringVar(&user, "user", "", "External user ID to register (required)")
	cmd.Flags().StringVar(&email, "email", "", "Contact email for the user")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output the raw response as JSON")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

func runConnect(cmd *cobra.Command, configPath, user, email string, jsonOutput bool) error {
	req, err := mind.ParseConnectRequest(map[string]any{
		"endUserExternalId": user,
		"email":             email,
	})
	if err != nil {
		return fmt.Errorf("%s", mindlinkerrors.UserString(err))
	}

	cfg, err := shared.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("%s", mindlinkerrors.UserString(err))
	}

	client := shared.NewClient(cfg)
	resp, err := client.Connect(cmd.Context(), req)
	if err != nil {
		return fmt.Errorf("%s", mindlinkerrors.UserString(err))
	}

	if jsonOutput {
		return shared.PrintJSON(cmd, resp)
	}
	if connectionID, ok := resp.String("connection_id"); ok {
		cmd.Printf("connected: %s\n", connectionID)
	} else {
		cmd.Println("connected")
	}
	return nil
}
