// Package collect implements the collect command.
package collect

import (
	"sort"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/agentstation/codeinventory"
	"github.com/agentstation/codeinventory/internal/cmd/application"
	"github.com/agentstation/codeinventory/internal/cmd/output"
	"github.com/agentstation/codeinventory/internal/cmd/table"
	"github.com/agentstation/codeinventory/pkg/errors"
)

// Organization is one row of the collect report.
type Organization struct {
	Name         string `json:"name" yaml:"name"`
	Repositories int    `json:"repositories" yaml:"repositories"`
	Error        string `json:"error,omitempty" yaml:"error,omitempty"`
}

// NewCommand creates the collect command.
func NewCommand(app application.Application) *cobra.Command {
	var (
		orgs        []string
		concurrency int
		timeout     time.Duration
	)

	cmd := &cobra.Command{
		Use:     "collect",
		GroupID: "core",
		Short:   "List organization repositories into raw files",
		Long: `Collect lists every repository of each organization from GitHub and
writes one raw JSON file per organization.

Organizations come from --org or GH_ORG. Credentials are read from
GH_PAT_TOKEN, or GH_APP_ID, GH_APP_INSTALLATION_ID and GH_APP_PRIVATE_KEY.
A failed organization is reported and does not stop the others.`,
		Example: `  codeinventory collect --org cdcgov
  codeinventory collect --org cdcgov --org cdcent --concurrency 2`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if len(orgs) == 0 {
				orgs = app.Organizations()
			}
			if len(orgs) == 0 {
				return errors.NewValidationError("org", nil, "no organizations given; use --org or GH_ORG")
			}

			src, err := app.Source(orgs...)
			if err != nil {
				return err
			}
			opts := []codeinventory.Option{codeinventory.WithSource(src)}
			if concurrency > 0 {
				opts = append(opts, codeinventory.WithConcurrency(concurrency))
			}
			if timeout > 0 {
				opts = append(opts, codeinventory.WithCollectTimeout(timeout))
			}
			client, err := app.Client(opts...)
			if err != nil {
				return err
			}

			result, collectErr := client.Collect(cmd.Context(), orgs...)
			if result != nil {
				report := Report(result)
				if err := output.Write(cmd.OutOrStdout(), output.DetectFormat(app.OutputFormat()), report, func(bool) table.Data {
					return reportTable(report)
				}); err != nil {
					return err
				}
			}
			return collectErr
		},
	}

	cmd.Flags().StringSliceVar(&orgs, "org", nil, "organization to collect (repeatable)")
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "organizations collected at once")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "time limit per organization")

	return cmd
}

// Report lists every organization of a collect run by name.
func Report(result *codeinventory.CollectResult) []Organization {
	var report []Organization
	for org, raws := range result.Repositories {
		report = append(report, Organization{Name: org, Repositories: len(raws)})
	}
	for org, err := range result.Failed {
		report = append(report, Organization{Name: org, Error: err.Error()})
	}
	sort.Slice(report, func(i, j int) bool { return report[i].Name < report[j].Name })
	return report
}

func reportTable(report []Organization) table.Data {
	rows := make([][]string, 0, len(report))
	for _, r := range report {
		status := "ok"
		if r.Error != "" {
			status = r.Error
		}
		rows = append(rows, []string{r.Name, strconv.Itoa(r.Repositories), status})
	}
	return table.Data{
		Headers:         []string{"Organization", "Repositories", "Status"},
		Rows:            rows,
		ColumnAlignment: []table.Align{table.AlignLeft, table.AlignRight, table.AlignLeft},
	}
}
