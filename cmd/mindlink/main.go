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

package main

import (
	"fmt"
	"os"

	"github.com/tombee/mindlink/internal/cli"
	"github.com/tombee/mindlink/internal/commands/connect"
	"github.com/tombee/mindlink/internal/commands/ingest"
	"github.com/tombee/mindlink/internal/commands/mcpserver"
	"github.com/tombee/mindlink/internal/commands/query"
	"github.com/tombee/mindlink/internal/commands/status"
	versioncmd "github.com/tombee/mindlink/internal/commands/version"
)

// Version information (injected via ldflags at build time)
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	// Set version information from build-time ldflags
	cli.SetVersion(version, commit, buildDate)

	rootCmd := cli.NewRootCommand()

	// Memory operations
	rootCmd.AddCommand(connect.NewCommand())
	rootCmd.AddCommand(ingest.NewCommand())
	rootCmd.AddCommand(query.NewCommand())

	// MCP server
	rootCmd.AddCommand(mcpserver.NewCommand())

	// Utility commands
	rootCmd.AddCommand(status.NewCommand())
	rootCmd.AddCommand(versioncmd.NewCommand())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
