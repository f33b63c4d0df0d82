// Package validate implements the validate command.
package validate

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentstation/codeinventory/internal/cmd/application"
	"github.com/agentstation/codeinventory/internal/store"
	"github.com/agentstation/codeinventory/pkg/assemble"
)

// NewCommand creates the validate command.
func NewCommand(app application.Application) *cobra.Command {
	return &cobra.Command{
		Use:     "validate [code.json]",
		GroupID: "management",
		Short:   "Check a catalog against the inventory schema",
		Long: `Validate checks the required top-level fields of a catalog and every
release in it. Non-public releases must be published under their private
id. Without an argument the catalog in the output directory is checked.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			} else {
				client, err := app.Client()
				if err != nil {
					return err
				}
				path = client.Store().CatalogPath()
			}

			catalog, err := store.ReadCatalog(path)
			if err != nil {
				return err
			}
			if err := assemble.Validate(catalog); err != nil {
				return err
			}

			app.Logger().Debug().Str("path", path).Int("releases", len(catalog.Releases)).Msg("Catalog is valid")
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s: %d releases, valid\n", path, len(catalog.Releases))
			return err
		},
	}
}
