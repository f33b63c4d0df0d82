// Package combine implements the combine command.
package combine

import (
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/agentstation/codeinventory"
	"github.com/agentstation/codeinventory/internal/cmd/application"
	"github.com/agentstation/codeinventory/internal/cmd/output"
	"github.com/agentstation/codeinventory/internal/cmd/table"
	"github.com/agentstation/codeinventory/pkg/differ"
	"github.com/agentstation/codeinventory/pkg/inventory"
	"github.com/agentstation/codeinventory/pkg/logging"
	"github.com/agentstation/codeinventory/pkg/reconciler"
)

// Summary describes a combine run.
type Summary struct {
	RunID     string                      `json:"run_id" yaml:"run_id"`
	Catalog   string                      `json:"catalog" yaml:"catalog"`
	Stats     reconciler.ResultStatistics `json:"stats" yaml:"stats"`
	Changeset *differ.Changeset           `json:"changeset,omitempty" yaml:"changeset,omitempty"`
}

// NewCommand creates the combine command.
func NewCommand(app application.Application) *cobra.Command {
	var (
		previous     string
		salt         string
		noProvenance bool
		releases     bool
	)

	cmd := &cobra.Command{
		Use:     "combine",
		GroupID: "core",
		Short:   "Reconcile raw files into the public catalog",
		Long: `Combine reads every raw organization file, applies README overrides,
classifies each repository and writes:

  code.json              public catalog (output dir)
  private-id-xref.csv    pseudonym cross-reference (private dir)
  run-log.json           per-record warnings and errors (private dir)
  provenance.yaml        override audit and field provenance (private dir)

With --previous, the new catalog is compared against an earlier one and the
changes are reported.`,
		Example: `  codeinventory combine
  codeinventory combine --previous data/public/code.json --salt "$SALT"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts := []codeinventory.Option{
				codeinventory.WithSalt(salt),
				codeinventory.WithPrevious(previous),
			}
			if noProvenance {
				opts = append(opts, codeinventory.WithProvenance(false))
			}
			client, err := app.Client(opts...)
			if err != nil {
				return err
			}

			client.OnReleaseRemoved(func(r inventory.Release) {
				logging.FromContext(cmd.Context()).Warn().
					Str("organization", r.Organization).
					Str("release", r.Name).
					Msg("Release no longer in catalog")
			})

			result, err := client.Combine(cmd.Context())
			if err != nil {
				return err
			}

			format := output.DetectFormat(app.OutputFormat())
			w := cmd.OutOrStdout()
			if releases {
				return output.Releases(w, format, result.Catalog.Releases)
			}
			return printSummary(w, format, Summary{
				RunID:     result.Metadata.RunID,
				Catalog:   client.Store().CatalogPath(),
				Stats:     result.Metadata.Stats,
				Changeset: result.Changeset,
			})
		},
	}

	cmd.Flags().StringVar(&previous, "previous", "", "previous catalog to compare against")
	cmd.Flags().StringVar(&salt, "salt", "", "pseudonym salt (default $CODEINVENTORY_SALT, random when unset)")
	cmd.Flags().BoolVar(&noProvenance, "no-provenance", false, "skip the provenance report")
	cmd.Flags().BoolVar(&releases, "releases", false, "print the catalog releases instead of the summary")

	return cmd
}

func printSummary(w io.Writer, format output.Format, s Summary) error {
	if err := output.Write(w, format, s, func(bool) table.Data { return statsTable(s) }); err != nil {
		return err
	}
	if format.IsTable() && s.Changeset != nil {
		s.Changeset.Print(w)
	}
	return nil
}

func statsTable(s Summary) table.Data {
	st := s.Stats
	row := func(name string, n int) []string { return []string{name, strconv.Itoa(n)} }
	return table.Data{
		Headers: []string{"Run " + s.RunID, "Count"},
		Rows: [][]string{
			row("Read", st.RecordsRead),
			row("Dropped", st.RecordsDropped),
			row("Excluded", st.RecordsExcluded),
			row("Published", st.RecordsPublished),
			row("Open", st.Open),
			row("Exempt", st.Exempt),
			row("Withheld", st.Withheld),
			row("Overrides applied", st.OverridesApplied),
		},
		ColumnAlignment: []table.Align{table.AlignLeft, table.AlignRight},
	}
}
