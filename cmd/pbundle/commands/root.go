// Package commands implements the CLI commands for pbundle.
package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.trai.ch/pbundle/internal/app"
	"go.trai.ch/pbundle/internal/build"
	"go.trai.ch/pbundle/internal/core/domain"
)

// CLI represents the command line interface for pbundle.
type CLI struct {
	app     Application
	rootCmd *cobra.Command
}

// Application represents the application logic interface.
type Application interface {
	Install(ctx context.Context, opts app.Options) (*app.Bundle, error)
	Exec(ctx context.Context, opts app.Options, command []string) error
	Show(ctx context.Context, opts app.Options, name string) (string, error)
	Check(ctx context.Context, opts app.Options) (bool, error)
	Clean(ctx context.Context) error
}

// New creates a new CLI instance with the given app.
func New(a Application) *CLI {
	rootCmd := &cobra.Command{
		Use:           "pbundle",
		Short:         "Resolve, install and activate Python package bundles",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       build.Version,
	}

	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"{{.Name}} version {{.Version}} (commit: %s, date: %s)\n",
		build.Commit,
		build.Date,
	))
	rootCmd.InitDefaultVersionFlag()
	rootCmd.Flags().Lookup("version").Usage = "Print the application version"

	rootCmd.InitDefaultHelpFlag()
	rootCmd.Flags().Lookup("help").Usage = "Show help for command"

	rootCmd.PersistentFlags().StringP("config", "c", domain.BundleFileName, "Requirement file name or path")
	rootCmd.PersistentFlags().StringSliceP("group", "g", nil, "Requirement groups to include (default \"default\")")
	rootCmd.PersistentFlags().String("platform", "", "Platform tag used to filter requirements")

	c := &CLI{
		app:     a,
		rootCmd: rootCmd,
	}

	rootCmd.AddCommand(c.newInstallCmd())
	rootCmd.AddCommand(c.newExecCmd())
	rootCmd.AddCommand(c.newShowCmd())
	rootCmd.AddCommand(c.newCheckCmd())
	rootCmd.AddCommand(c.newCleanCmd())
	rootCmd.AddCommand(c.newVersionCmd())

	return c
}

// Execute runs the root command with the given context.
func (c *CLI) Execute(ctx context.Context) error {
	c.rootCmd.SetContext(ctx)
	return c.rootCmd.Execute()
}

// SetArgs sets the arguments for the root command. Used for testing.
func (c *CLI) SetArgs(args []string) {
	c.rootCmd.SetArgs(args)
}

// SetOutput sets the output and error streams for the root command. Used for testing.
func (c *CLI) SetOutput(out, err io.Writer) {
	c.rootCmd.SetOut(out)
	c.rootCmd.SetErr(err)
}

// options reads the persistent flags shared by every bundle command.
func options(cmd *cobra.Command) app.Options {
	config, _ := cmd.Flags().GetString("config")
	groups, _ := cmd.Flags().GetStringSlice("group")
	platform, _ := cmd.Flags().GetString("platform")
	return app.Options{
		Dir:        ".",
		ConfigFile: config,
		Groups:     groups,
		Platform:   platform,
	}
}
