package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/tmlink/internal/driver"
	"github.com/roach88/tmlink/internal/graph"
	"github.com/roach88/tmlink/internal/pipeline"
	"github.com/roach88/tmlink/internal/store"
)

// BuildOptions holds flags for the build command.
type BuildOptions struct {
	*RootOptions
	graphFlags

	Pass    string
	TempDir string
	Output  string
	Journal string
	DryRun  bool

	// Executor overrides the process executor (for testing).
	Executor driver.Executor

	// IDs overrides the run ID generator (for testing).
	IDs driver.IDGenerator
}

// BuildReport is the build command's JSON payload.
type BuildReport struct {
	RunID   string   `json:"run_id"`
	Plan    []string `json:"plan"`
	Actions []string `json:"actions"`
	Outputs []string `json:"outputs"`
	DryRun  bool     `json:"dry_run,omitempty"`
}

// NewBuildCommand creates the build command.
func NewBuildCommand(rootOpts *RootOptions) *cobra.Command {
	return newBuildCommand(&BuildOptions{RootOptions: rootOpts})
}

func newBuildCommand(opts *BuildOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build <inputs...>",
		Short: "Link bitcode inputs into an executable",
		Long: `Run every stage of the compilation graph over the inputs.

Stages run one after another; a transform stage runs the selected pass
over the linked module in process. Each run gets a UUIDv7 run ID and is
recorded in the journal when one is configured.

Example:
  tmlink build -o prog a.bc b.bc
  tmlink build -F optimize --pass dce --journal ./tmlink.db a.bc
  tmlink build --dry-run --param stmlib=/opt/stm/libstm.a a.bc`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(opts, args, cmd)
		},
	}

	opts.register(cmd)
	cmd.Flags().StringVar(&opts.Pass, "pass", "", "pass run by the transform stage (default tm-instrument)")
	cmd.Flags().StringVar(&opts.TempDir, "temp-dir", "", "directory for intermediate files")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "final output path")
	cmd.Flags().StringVar(&opts.Journal, "journal", "", "record the run in this SQLite database")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "print the actions without running them")

	return cmd
}

func runBuild(opts *BuildOptions, inputs []string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)
	cfg, err := opts.loadConfig(f)
	if err != nil {
		return err
	}
	if err := opts.apply(cmd, cfg); err != nil {
		return f.Fail(ExitCommandError, ErrCodeConfig, "invalid flags", err, nil)
	}
	if cmd.Flags().Changed("pass") {
		cfg.Pass = opts.Pass
	}
	if cmd.Flags().Changed("temp-dir") {
		cfg.TempDir = opts.TempDir
	}
	if cmd.Flags().Changed("output") {
		cfg.Output = opts.Output
	}
	if cmd.Flags().Changed("journal") {
		cfg.Journal = opts.Journal
	}
	if err := cfg.Validate(); err != nil {
		return f.Fail(ExitCommandError, ErrCodeConfig, "invalid configuration", err, nil)
	}

	log := opts.logger(cmd.ErrOrStderr())
	tr := &pipeline.Transformer{
		TargetLayout: cfg.TargetLayout,
		EntryPoints:  cfg.EntryPoints,
		Logger:       log,
	}
	g, err := populateGraph(f, cfg, tr, log)
	if err != nil {
		return err
	}

	exec := opts.Executor
	if exec == nil {
		exec = &driver.ProcessExecutor{
			Stdout: cmd.ErrOrStderr(),
			Stderr: cmd.ErrOrStderr(),
			Logger: log,
		}
	}
	d := &driver.Driver{
		Graph:    g,
		Executor: exec,
		Logger:   log,
		IDs:      opts.IDs,
		Flags:    cfg.Flags,
		TempDir:  cfg.TempDir,
		Output:   cfg.Output,
		Pass:     cfg.Pass,
		DryRun:   opts.DryRun,
	}

	if cfg.Journal != "" {
		st, err := store.Open(cfg.Journal)
		if err != nil {
			return f.Fail(ExitCommandError, ErrCodeJournal, "failed to open journal", err, nil)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				log.Error("error closing journal", "error", closeErr)
			}
		}()
		d.Journal = st
	}

	res, err := d.Build(cmd.Context(), inputs)
	if err != nil {
		exit, code := classifyBuildError(err)
		var details any
		if res != nil {
			details = map[string]string{"run_id": res.RunID}
		}
		return f.Fail(exit, code, "build failed", err, details)
	}

	report := BuildReport{
		RunID:   res.RunID,
		Plan:    res.Plan,
		Actions: make([]string, len(res.Actions)),
		Outputs: res.Outputs,
		DryRun:  opts.DryRun,
	}
	for i, a := range res.Actions {
		report.Actions[i] = driver.FormatAction(a)
	}

	if f.Format == "json" {
		return f.Success(report)
	}
	if opts.DryRun {
		return driver.FormatActions(cmd.OutOrStdout(), res.Actions)
	}
	f.VerboseLog("run %s: %s", res.RunID, strings.Join(res.Plan, " -> "))
	for _, out := range res.Outputs {
		fmt.Fprintln(cmd.OutOrStdout(), out)
	}
	return nil
}

// classifyBuildError maps a build failure to an exit code and error code.
// Problems with the graph or the inputs are command errors; a stage that
// ran and failed is a build failure.
func classifyBuildError(err error) (int, string) {
	var pe *pipeline.Error
	switch {
	case errors.As(err, &pe):
		return ExitFailure, pipelineErrorCode(err)
	case graph.CodeOf(err) != "":
		return ExitCommandError, ErrCodeGraph
	case errors.Is(err, driver.ErrNoInputs),
		errors.Is(err, driver.ErrKindMismatch),
		errors.Is(err, driver.ErrUnknownKind):
		return ExitCommandError, ErrCodeGeneric
	default:
		return ExitFailure, ErrCodeBuild
	}
}

func pipelineErrorCode(err error) string {
	var pe *pipeline.Error
	switch {
	case pipeline.IsLoadError(err):
		return ErrCodeLoad
	case pipeline.IsPassNotFound(err):
		return ErrCodePassNotFound
	case pipeline.IsVerifyError(err):
		return ErrCodeVerify
	case errors.As(err, &pe) && pe.Code == pipeline.CodeWrite:
		return ErrCodeWrite
	default:
		return ErrCodeBuild
	}
}
