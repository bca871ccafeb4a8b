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

package query

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tombee/mindlink/internal/commands/shared"
	mindlinkerrors "github.com/tombee/mindlink/pkg/errors"
	"github.com/tombee/mindlink/pkg/mind"
)

// NewCommand creates the query command.
func NewCommand() *cobra.Command {
	var (
		configPath   string
		connectionID string
		user         string
		mindState    string
		maxTokens    int
		temperature  float64
		providers    []string
		jsonOutput   bool
	)

	cmd := &cobra.Command{
		Use:   "query <question>",
		Short: "Ask a question against a user's memory",
		Long: `Ask a natural-language question against an end user's memory.

The target user is addressed either by --connection-id or by --user.
Mind state, token budget, and temperature fall back to the configured
defaults when the flags are not set.`,
		Example: `  # Ask about a user's stored documents
  mindlink query --user alice-1234 "What did we decide in the weekly sync?"

  # Pin the query to long-term memory
  mindlink query --connection-id 8f14e45f-... --mind-state long_term "Summarize Q3"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, queryOptions{
				configPath:   configPath,
				question:     args[0],
				connectionID: connectionID,
				user:         user,
				mindState:    mindState,
				maxTokens:    maxTokens,
				temperature:  temperature,
				tempSet:      cmd.Flags().Changed("temperature"),
				providers:    providers,
				jsonOutput:   jsonOutput,
			})
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "Path to the config file")
	cmd.Flags().StringVar(&connectionID, "connection-id", "", "Connection ID of the target user")
	cmd.Flags().StringVar(&user, "user", "", "External user ID of the target user")
	cmd.Flags().StringVar(&mindState, "mind-state", "", "Memory tier: auto, short_term, mid_term, long_term")
	cmd.Flags().IntVar(&maxTokens, "max-tokens", 0, "Token budget for the answer")
	cmd.Flags().Float64Var(&temperature, "temperature", 0, "Sampling temperature for the answer")
	cmd.Flags().StringSliceVar(&providers, "provider", nil, "Restrict the query to specific providers")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output the raw response as JSON")

	return cmd
}

type queryOptions struct {
	configPath   string
	question     string
	connectionID string
	user         string
	mindState    string
	maxTokens    int
	temperature  float64
	tempSet      bool
	providers    []string
	jsonOutput   bool
}

func runQuery(cmd *cobra.Command, opts queryOptions) error {
	args := map[string]any{
		"question": opts.question,
	}
	if opts.connectionID != "" {
		args["connectionId"] = opts.connectionID
	}
	if opts.user != "" {
		args["endUserExternalId"] = opts.user
	}
	if opts.mindState != "" {
		args["mindState"] = opts.mindState
	}
	if opts.maxTokens != 0 {
		args["maxTokens"] = opts.maxTokens
	}
	if opts.tempSet {
		args["temperature"] = opts.temperature
	}
	if len(opts.providers) > 0 {
		args["providers"] = opts.providers
	}

	req, err := mind.ParseQueryRequest(args)
	if err != nil {
		return fmt.Errorf("%s", mindlinkerrors.UserString(err))
	}

	cfg, err := shared.LoadConfig(opts.configPath)
	if err != nil {
		return fmt.Errorf("%s", mindlinkerrors.UserString(err))
	}

	client := shared.NewClient(cfg)
	resp, err := client.Query(cmd.Context(), req)
	if err != nil {
		return fmt.Errorf("%s", mindlinkerrors.UserString(err))
	}

	if opts.jsonOutput {
		return shared.PrintJSON(cmd, resp)
	}
	cmd.Println(answerText(resp))
	return nil
}

// answerText extracts the most useful human-readable field from a
// query response.
func answerText(resp mind.Response) string {
	if answer, ok := resp.String("answer"); ok {
		return answer
	}
	if text, ok := resp.NestedString("short_term", "raw_text"); ok {
		return text
	}
	if raw, ok := resp.Raw(); ok {
		return strings.TrimSpace(raw)
	}
	return "(no answer returned)"
}
