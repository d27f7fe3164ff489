package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/roach88/tmlink/internal/ir"
	"github.com/roach88/tmlink/internal/pipeline"
)

// TransformOptions holds flags for the transform command.
type TransformOptions struct {
	*RootOptions
	Output       string
	Pass         string
	TargetLayout string
	EntryPoints  []string
}

// TransformReport is the transform command's JSON payload.
type TransformReport struct {
	Input  string `json:"input"`
	Output string `json:"output"`
	Pass   string `json:"pass,omitempty"`
	Hash   string `json:"hash,omitempty"`
}

// NewTransformCommand creates the transform command.
func NewTransformCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TransformOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "transform <input>",
		Short: "Run the pass pipeline over one module",
		Long: `Load a bitcode module, run target-layout, internalize, mem2reg, the
selected pass and the verifier, then write the result.

"-" reads standard input or writes standard output. A file output is
replaced atomically and never left half written.

Example:
  tmlink transform --pass tm-instrument -o out.bc linked.bc
  tmlink transform --pass noop - < in.bc > out.bc`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTransform(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", ir.StdStream, "output path")
	cmd.Flags().StringVar(&opts.Pass, "pass", "", "pass to run (default tm-instrument)")
	cmd.Flags().StringVar(&opts.TargetLayout, "target-layout", "", "override the module data layout")
	cmd.Flags().StringSliceVar(&opts.EntryPoints, "entry", nil, "symbols kept external by internalize (default main)")

	return cmd
}

func runTransform(opts *TransformOptions, input string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)
	cfg, err := opts.loadConfig(f)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("pass") {
		cfg.Pass = opts.Pass
	}
	if cmd.Flags().Changed("target-layout") {
		cfg.TargetLayout = opts.TargetLayout
	}
	if cmd.Flags().Changed("entry") {
		cfg.EntryPoints = opts.EntryPoints
	}
	if err := cfg.Validate(); err != nil {
		return f.Fail(ExitCommandError, ErrCodeConfig, "invalid configuration", err, nil)
	}

	tr := &pipeline.Transformer{
		TargetLayout: cfg.TargetLayout,
		EntryPoints:  cfg.EntryPoints,
		Logger:       opts.logger(cmd.ErrOrStderr()),
		Stdin:        cmd.InOrStdin(),
		Stdout:       cmd.OutOrStdout(),
	}
	if err := tr.Transform(cmd.Context(), input, opts.Output, cfg.Pass); err != nil {
		code := ErrCodeGeneric
		var pe *pipeline.Error
		if errors.As(err, &pe) {
			code = pipelineErrorCode(err)
		}
		return f.Fail(ExitFailure, code, "transform failed", err, nil)
	}

	// The module itself went to stdout; nothing else may follow it.
	if opts.Output == ir.StdStream {
		return nil
	}

	report := TransformReport{Input: input, Output: opts.Output, Pass: cfg.Pass}
	m, err := ir.ReadFile(opts.Output)
	if err != nil {
		return f.Fail(ExitFailure, ErrCodeLoad, "failed to re-read output", err, nil)
	}
	if report.Hash, err = ir.ModuleHash(m); err != nil {
		return f.Fail(ExitFailure, ErrCodeGeneric, "failed to hash output", err, nil)
	}
	if f.Format == "json" {
		return f.Success(report)
	}
	return f.Success(report.Output + " " + report.Hash)
}
