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

package ingest

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/tombee/mindlink/internal/commands/shared"
	mindlinkerrors "github.com/tombee/mindlink/pkg/errors"
	"github.com/tombee/mindlink/pkg/mind"
)

// NewCommand creates the ingest command.
func NewCommand() *cobra.Command {
	var (
		configPath   string
		connectionID string
		user         string
		name         string
		file         string
		contentType  string
		ref          string
		jsonOutput   bool
	)

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Store content in a user's memory",
		Long: `Store a document in an end user's memory.

Content is read from --file, or from stdin when --file is "-" or omitted.
The target user is addressed either by --connection-id (from a previous
connect) or by --user.`,
		Example: `  # Ingest a meeting transcript from a file
  mindlink ingest --user alice-1234 --name "Weekly sync" --file notes.txt --type transcript

  # Ingest from stdin
  cat report.md | mindlink ingest --connection-id 8f14e45f-... --name "Q3 report" --type markdown`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(cmd, ingestOptions{
				configPath:   configPath,
				connectionID: connectionID,
				user:         user,
				name:         name,
				file:         file,
				contentType:  contentType,
				ref:          ref,
				jsonOutput:   jsonOutput,
			})
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "Path to the config file")
	cmd.Flags().StringVar(&connectionID, "connection-id", "", "Connection ID of the target user")
	cmd.Flags().StringVar(&user, "user", "", "External user ID of the target user")
	cmd.Flags().StringVar(&name, "name", "", "Display name for the stored document (required)")
	cmd.Flags().StringVar(&file, "file", "", "File to ingest, or \"-\" for stdin")
	cmd.Flags().StringVar(&contentType, "type", "", "Content type: raw_text, markdown, transcript, email, document")
	cmd.Flags().StringVar(&ref, "ref", "", "Caller-supplied reference stored with the document")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output the raw response as JSON")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

type ingestOptions struct {
	configPath   string
	connectionID string
	user         string
	name         string
	file         string
	contentType  string
	ref          string
	jsonOutput   bool
}

func runIngest(cmd *cobra.Command, opts ingestOptions) error {
	text, err := readContent(cmd, opts.file)
	if err != nil {
		return err
	}

	args := map[string]any{
		"name": opts.name,
		"text": text,
	}
	if opts.connectionID != "" {
		args["connectionId"] = opts.connectionID
	}
	if opts.user != "" {
		args["endUserExternalId"] = opts.user
	}
	if opts.contentType != "" {
		args["type"] = opts.contentType
	}
	if opts.ref != "" {
		args["ref"] = opts.ref
	}

	req, err := mind.ParseIngestRequest(args)
	if err != nil {
		return fmt.Errorf("%s", mindlinkerrors.UserString(err))
	}

	cfg, err := shared.LoadConfig(opts.configPath)
	if err != nil {
		return fmt.Errorf("%s", mindlinkerrors.UserString(err))
	}

	client := shared.NewClient(cfg)
	resp, err := client.Ingest(cmd.Context(), req)
	if err != nil {
		return fmt.Errorf("%s", mindlinkerrors.UserString(err))
	}

	if opts.jsonOutput {
		return shared.PrintJSON(cmd, resp)
	}
	if storedAs, ok := resp.String("stored_as"); ok {
		cmd.Printf("ingested %q (stored as %s)\n", opts.name, storedAs)
	} else {
		cmd.Printf("ingested %q\n", opts.name)
	}
	return nil
}

func readContent(cmd *cobra.Command, file string) (string, error) {
	if file == "" || file == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", file, err)
	}
	return string(data), nil
}
