package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/tmlink/internal/ir"
	"github.com/roach88/tmlink/internal/passes"
)

// AssembleOptions holds flags for the assemble command.
type AssembleOptions struct {
	*RootOptions
	Output   string
	NoVerify bool
}

// NewAssembleCommand creates the assemble command.
func NewAssembleCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AssembleOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "assemble <module.json>",
		Short: "Encode a JSON module as bitcode",
		Long: `Read a module written as JSON (the bitcode payload format), verify it
and write it as a bitcode file. "-" reads standard input.

Example:
  tmlink assemble -o cart.bc cart.json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAssemble(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output path (required, - for stdout)")
	cmd.Flags().BoolVar(&opts.NoVerify, "no-verify", false, "skip module verification")
	_ = cmd.MarkFlagRequired("output")

	return cmd
}

func runAssemble(opts *AssembleOptions, path string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	var (
		data []byte
		err  error
	)
	if path == ir.StdStream {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeNotFound, "failed to read "+path, err, nil)
	}

	m, err := parseModuleJSON(data)
	if err != nil {
		return f.Fail(ExitFailure, ErrCodeLoad, "failed to parse "+path, err, nil)
	}
	if !opts.NoVerify {
		if err := passes.Verify(m); err != nil {
			return f.Fail(ExitFailure, ErrCodeVerify, "module is invalid", err, nil)
		}
	}

	if opts.Output == ir.StdStream {
		if err := ir.Encode(cmd.OutOrStdout(), m); err != nil {
			return f.Fail(ExitFailure, ErrCodeWrite, "failed to write module", err, nil)
		}
		return nil
	}
	if err := ir.WriteFile(opts.Output, m); err != nil {
		return f.Fail(ExitFailure, ErrCodeWrite, "failed to write "+opts.Output, err, nil)
	}

	hash, err := ir.ModuleHash(m)
	if err != nil {
		return f.Fail(ExitFailure, ErrCodeGeneric, "failed to hash module", err, nil)
	}
	if f.Format == "json" {
		return f.Success(TransformReport{Input: path, Output: opts.Output, Hash: hash})
	}
	return f.Success(fmt.Sprintf("%s %s", opts.Output, hash))
}

func parseModuleJSON(data []byte) (*ir.Module, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	var m ir.Module
	if err := dec.Decode(&m); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, fmt.Errorf("trailing data after module")
	}
	return &m, nil
}
