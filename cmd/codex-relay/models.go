package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/HendryAvila/codex-relay/internal/codexconfig"
)

func newModelsCmd() *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "models",
		Short: "List models configured in the local Codex config",
		RunE: func(cmd *cobra.Command, args []string) error {
			if dir == "" {
				d, err := codexconfig.Dir()
				if err != nil {
					return err
				}
				dir = d
			}
			models, err := codexconfig.Discover(dir)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), codexconfig.Format(models))
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "codex-home", "", "Codex config directory (default $CODEX_HOME or ~/.codex)")
	return cmd
}
