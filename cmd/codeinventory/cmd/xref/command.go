// Package xref implements the xref command.
package xref

import (
	"github.com/spf13/cobra"

	"github.com/agentstation/codeinventory"
	"github.com/agentstation/codeinventory/internal/cmd/application"
	"github.com/agentstation/codeinventory/internal/cmd/output"
	"github.com/agentstation/codeinventory/internal/store"
	"github.com/agentstation/codeinventory/pkg/inventory"
)

// NewCommand creates the xref command.
func NewCommand(app application.Application) *cobra.Command {
	var (
		salt string
		show bool
	)

	cmd := &cobra.Command{
		Use:     "xref",
		GroupID: "core",
		Short:   "Write the private repository cross-reference",
		Long: `Xref reconciles the raw files and writes only the cross-reference table
that maps each private repository to the pseudonym it is published under.

Use the same salt as combine so the pseudonyms match the catalog. The table
is written to the private directory and never next to the catalog.

With --show, the existing table is printed without reconciling.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := app.Client(codeinventory.WithSalt(salt))
			if err != nil {
				return err
			}

			var mappings []inventory.PseudonymMapping
			if show {
				mappings, err = store.ReadCrossReference(client.Store().CrossReferencePath())
			} else {
				mappings, err = reconcile(cmd, client)
			}
			if err != nil {
				return err
			}
			return output.Mappings(cmd.OutOrStdout(), output.DetectFormat(app.OutputFormat()), mappings)
		},
	}

	cmd.Flags().StringVar(&salt, "salt", "", "pseudonym salt (default $CODEINVENTORY_SALT)")
	cmd.Flags().BoolVar(&show, "show", false, "print the existing table")

	return cmd
}

func reconcile(cmd *cobra.Command, client codeinventory.Client) ([]inventory.PseudonymMapping, error) {
	result, err := client.CrossReference(cmd.Context())
	if err != nil {
		return nil, err
	}
	return result.Mappings, nil
}
