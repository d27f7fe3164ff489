package cli

import (
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/tmlink/internal/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigFile string

	// DotEnv is read for TMLINK_ variables; a missing file is ignored.
	DotEnv string

	// LookupEnv replaces os.LookupEnv (for testing).
	LookupEnv func(string) (string, bool)
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the tmlink CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{DotEnv: ".env"}

	cmd := &cobra.Command{
		Use:   "tmlink",
		Short: "tmlink - transactional memory link driver",
		Long: `Links LLVM bitcode for transactional memory programs.

tmlink walks a compilation graph from linked bitcode to an executable,
running the tm-instrument pass (or any other registered pass) over the
linked module along the way.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return WrapExitError(ExitCommandError, "invalid flags",
					fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigFile, "config", "", "YAML configuration file")

	cmd.AddCommand(NewBuildCommand(opts))
	cmd.AddCommand(NewTransformCommand(opts))
	cmd.AddCommand(NewGraphCommand(opts))
	cmd.AddCommand(NewPassesCommand(opts))
	cmd.AddCommand(NewJournalCommand(opts))
	cmd.AddCommand(NewDumpCommand(opts))
	cmd.AddCommand(NewAssembleCommand(opts))

	return cmd
}

func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

// logger writes to w: JSON lines under --format json, text otherwise.
// Only warnings and errors are shown unless --verbose is set.
func (o *RootOptions) logger(w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if o.Verbose {
		level = slog.LevelDebug
	}
	hopts := &slog.HandlerOptions{Level: level}
	if o.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, hopts))
	}
	return slog.New(slog.NewTextHandler(w, hopts))
}

func (o *RootOptions) loadConfig(f *OutputFormatter) (*config.Config, error) {
	cfg, err := config.Load(config.Options{
		File:      o.ConfigFile,
		DotEnv:    o.DotEnv,
		LookupEnv: o.LookupEnv,
	})
	if err != nil {
		return nil, f.Fail(ExitCommandError, ErrCodeConfig, "failed to load configuration", err, nil)
	}
	return cfg, nil
}

// graphFlags are the flags shared by build and graph.
type graphFlags struct {
	Graph  string
	Flags  []string
	Params []string
}

func (g *graphFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&g.Graph, "graph", "", "CUE graph definition (default: built-in)")
	cmd.Flags().StringArrayVarP(&g.Flags, "flag", "F", nil, "set a graph flag; !name clears it (repeatable)")
	cmd.Flags().StringArrayVar(&g.Params, "param", nil, "set a tool parameter key=value (repeatable)")
}

// apply layers the flags over cfg.
func (g *graphFlags) apply(cmd *cobra.Command, cfg *config.Config) error {
	if cmd.Flags().Changed("graph") {
		cfg.Graph = g.Graph
	}
	for _, name := range g.Flags {
		cfg.SetFlag(name)
	}
	for _, kv := range g.Params {
		if err := cfg.SetParam(kv); err != nil {
			return err
		}
	}
	return nil
}
