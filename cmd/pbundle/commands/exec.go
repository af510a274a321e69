package commands

import (
	"github.com/spf13/cobra"
)

func (c *CLI) newExecCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "exec command [args...]",
		Short: "Run a command with the bundle activated",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.app.Exec(cmd.Context(), options(cmd), args)
		},
	}
	// Flags after the command name belong to the command.
	cmd.Flags().SetInterspersed(false)
	return cmd
}
