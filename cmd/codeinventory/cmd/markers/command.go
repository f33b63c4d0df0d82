// Package markers implements the markers command.
package markers

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/agentstation/codeinventory/internal/cmd/application"
	"github.com/agentstation/codeinventory/internal/cmd/output"
	"github.com/agentstation/codeinventory/pkg/errors"
	"github.com/agentstation/codeinventory/pkg/markers"
)

// NewCommand creates the markers command.
func NewCommand(app application.Application) *cobra.Command {
	return &cobra.Command{
		Use:     "markers <README>",
		GroupID: "management",
		Short:   "Show the override markers found in a README",
		Long: `Markers extracts "Field: value" override lines from a README the way
combine does and prints each applied marker together with lines that were
ignored as duplicates or malformed. Use "-" to read from stdin.`,
		Example: `  codeinventory markers README.md
  gh api repos/cdcgov/tool/readme -H "Accept: application/vnd.github.raw" | codeinventory markers -`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := app.Policy()
			if err != nil {
				return err
			}
			text, err := read(cmd, args[0])
			if err != nil {
				return err
			}
			result := markers.Extract(&text, p)
			return output.Markers(cmd.OutOrStdout(), output.DetectFormat(app.OutputFormat()), result)
		},
	}
}

func read(cmd *cobra.Command, path string) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", errors.WrapIO("read", path, err)
	}
	return string(data), nil
}
