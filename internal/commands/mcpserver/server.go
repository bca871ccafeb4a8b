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

package mcpserver

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tombee/mindlink/internal/commands/shared"
	"github.com/tombee/mindlink/internal/log"
	"github.com/tombee/mindlink/internal/mcp/server"
	mindlinkerrors "github.com/tombee/mindlink/pkg/errors"
)

// NewCommand creates the mcp-server command
func NewCommand() *cobra.Command {
	var (
		configPath string
		logLevel   string
	)

	cmd := &cobra.Command{
		Use:   "mcp-server",
		Short: "Start the mindlink MCP server",
		Long: `Start the mindlink MCP (Model Context Protocol) server.

The MCP server exposes the remote memory service as tools that AI coding
assistants (Claude Code, Cursor, Gemini CLI) can use to connect end users,
ingest content into their memory, and query it with natural-language
questions.

The server runs in stdio mode, which is suitable for integration with AI
assistants via their MCP configuration.

Configuration example for Claude Code (~/.config/claude/config.json):
  {
    "mcpServers": {
      "mindlink": {
        "command": "mindlink",
        "args": ["mcp-server"]
      }
    }
  }

The server exposes these tools:
  - mind_connect: Register an end user with the memory service
  - mind_ingest: Store content in a user's memory
  - mind_query: Ask a question against a user's memory
  - mind_status: Show resolved configuration and request activity`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMCPServer(cmd, configPath, logLevel)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "Path to the config file")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "Logging verbosity (debug, info, warn, error)")

	return cmd
}

func runMCPServer(cmd *cobra.Command, configPath, logLevel string) error {
	versionStr, _, _ := shared.GetVersion()

	cfg, err := shared.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("%s", mindlinkerrors.UserString(err))
	}

	logCfg := log.FromEnv()
	logCfg.Level = logLevel
	logger := log.New(logCfg)

	srv, err := server.NewServer(server.ServerConfig{
		Version: versionStr,
		Config:  cfg,
		Logger:  logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\nReceived shutdown signal, shutting down gracefully...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			fmt.Fprintf(os.Stderr, "Error during shutdown: %v\n", err)
		}

		cancel()
	}()

	// Run the server (blocks until shutdown)
	if err := srv.Run(ctx); err != nil {
		return fmt.Errorf("MCP server error: %w", err)
	}

	return nil
}
