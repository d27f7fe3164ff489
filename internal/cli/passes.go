package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/tmlink/internal/passes"
)

// PassReport describes one registered pass.
type PassReport struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// NewPassesCommand creates the passes command.
func NewPassesCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "passes",
		Short:         "List the registered passes",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			infos := passes.List()
			report := make([]PassReport, len(infos))
			for i, info := range infos {
				report[i] = PassReport{Name: info.Argument, Description: info.Description}
			}
			if f.Format == "json" {
				return f.Success(report)
			}

			width := 0
			for _, p := range report {
				width = max(width, len(p.Name))
			}
			var b strings.Builder
			for i, p := range report {
				if i > 0 {
					b.WriteString("\n")
				}
				fmt.Fprintf(&b, "%-*s  %s", width, p.Name, p.Description)
			}
			return f.Success(b.String())
		},
	}
}
