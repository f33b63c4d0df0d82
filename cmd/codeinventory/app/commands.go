package app

import (
	"github.com/spf13/cobra"

	"github.com/agentstation/codeinventory/cmd/codeinventory/cmd/collect"
	"github.com/agentstation/codeinventory/cmd/codeinventory/cmd/combine"
	"github.com/agentstation/codeinventory/cmd/codeinventory/cmd/markers"
	"github.com/agentstation/codeinventory/cmd/codeinventory/cmd/validate"
	"github.com/agentstation/codeinventory/cmd/codeinventory/cmd/version"
	"github.com/agentstation/codeinventory/cmd/codeinventory/cmd/xref"
)

// registerCommands registers all subcommands with the root command.
func (a *App) registerCommands(rootCmd *cobra.Command) {
	// Core commands
	rootCmd.AddCommand(collect.NewCommand(a))
	rootCmd.AddCommand(combine.NewCommand(a))
	rootCmd.AddCommand(xref.NewCommand(a))

	// Management commands
	rootCmd.AddCommand(markers.NewCommand(a))
	rootCmd.AddCommand(validate.NewCommand(a))
	rootCmd.AddCommand(version.NewCommand(a))
}
