package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/tmlink/internal/ir"
)

// DumpReport is the dump command's JSON payload.
type DumpReport struct {
	Module  string `json:"module"`
	Hash    string `json:"hash"`
	Listing string `json:"listing"`
}

// NewDumpCommand creates the dump command.
func NewDumpCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "dump <module>",
		Short: "Print a bitcode module as text with its content hash",
		Long: `Decode a bitcode module and print a readable listing followed by the
module's content hash. "-" reads standard input.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDump(rootOpts, args[0], cmd)
		},
	}
}

func runDump(opts *RootOptions, path string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	var (
		m   *ir.Module
		err error
	)
	if path == ir.StdStream {
		m, err = ir.Decode(cmd.InOrStdin())
	} else {
		m, err = ir.ReadFile(path)
	}
	if err != nil {
		return f.Fail(ExitFailure, ErrCodeLoad, "failed to load "+path, err, nil)
	}

	hash, err := ir.ModuleHash(m)
	if err != nil {
		return f.Fail(ExitFailure, ErrCodeGeneric, "failed to hash module", err, nil)
	}
	var b strings.Builder
	if err := ir.Dump(&b, m); err != nil {
		return f.Fail(ExitFailure, ErrCodeGeneric, "failed to dump module", err, nil)
	}

	if f.Format == "json" {
		return f.Success(DumpReport{Module: m.Name, Hash: hash, Listing: b.String()})
	}
	fmt.Fprintf(&b, "\n; hash %s", hash)
	return f.Success(b.String())
}
