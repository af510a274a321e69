package commands

import (
	"github.com/spf13/cobra"
	"go.trai.ch/pbundle/internal/core/domain"
)

func (c *CLI) newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Check that the lock file matches the requirement file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ok, err := c.app.Check(cmd.Context(), options(cmd))
			if err != nil {
				return err
			}
			if !ok {
				return domain.ErrLockStale
			}
			return nil
		},
	}
}
