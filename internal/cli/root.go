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

package cli

import (
	"github.com/spf13/cobra"

	"github.com/tombee/mindlink/internal/commands/shared"
)

// SetVersion sets the version information (called from main)
func SetVersion(v, c, b string) {
	shared.SetVersion(v, c, b)
}

// NewRootCommand creates the root Cobra command for mindlink
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mindlink",
		Short: "Mindlink - remote memory for AI assistants",
		Long: `Mindlink is a command-line bridge to a hosted memory service. It
registers end users, stores their documents, and answers questions
against what it has stored.

Run 'mindlink mcp-server' to expose the memory tools over MCP.
Run 'mindlink status' to inspect the resolved configuration.`,
		SilenceUsage:  true, // Don't show usage on errors
		SilenceErrors: true, // We handle errors ourselves for proper exit codes
	}

	return cmd
}
