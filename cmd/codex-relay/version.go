package main

import (
	"fmt"

	"github.com/spf13/cobra"

	relayserver "github.com/HendryAvila/codex-relay/internal/server"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "codex-relay v%s\n", relayserver.Version)
		},
	}
}
