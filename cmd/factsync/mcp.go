package main

import (
	factsyncmcp "github.com/hyperengineering/factsync/mcp"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP server for coding agent integration",
	Long: `Start a Model Context Protocol (MCP) server over stdio exposing the
fact cache as tools.

Configuration example:

  {
    "mcpServers": {
      "factsync": {
        "command": "factsync",
        "args": ["mcp"],
        "env": {
          "FACTSYNC_BASE_URL": "https://catfact.ninja",
          "FACTSYNC_LOG_PATH": "/tmp/factsync.log"
        }
      }
    }
  }

Environment variables:
  FACTSYNC_BASE_URL     Remote feed URL (optional; offline without it)
  FACTSYNC_DB_PATH      Path to local SQLite database
  FACTSYNC_ENVIRONMENT  Environment name (default: dev)
  FACTSYNC_LOG_PATH     Log file (stdout carries the MCP protocol)`,
	Args: cobra.NoArgs,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	client, err := openClient()
	if err != nil {
		return err
	}
	defer closeClient(client)

	return factsyncmcp.NewServer(client).Run()
}
