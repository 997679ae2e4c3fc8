// codex-relay: an MCP server that exposes the Codex CLI as tools, with
// conversational sessions and paginated output.
//
// Usage:
//
//	codex-relay serve              # Start MCP server (stdio transport)
//	codex-relay serve --transport http --http-addr :8080
//	codex-relay models             # List models from the local Codex config
//	codex-relay version
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Global flags.
var configPath string

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "codex-relay",
		Short: "MCP server for the Codex CLI",
		Long: `codex-relay runs the Codex CLI on behalf of MCP clients. It keeps
conversation sessions so a stateless "codex exec" call sees earlier turns,
and splits long answers into pages addressed by continuation tokens.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (default ~/.codex-relay/config.yaml)")

	root.AddCommand(newServeCmd())
	root.AddCommand(newModelsCmd())
	root.AddCommand(newVersionCmd())

	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
