package cli

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/tmlink/internal/action"
	"github.com/roach88/tmlink/internal/compiler"
	"github.com/roach88/tmlink/internal/config"
	"github.com/roach88/tmlink/internal/graph"
	"github.com/roach88/tmlink/internal/pipeline"
)

// GraphOptions holds flags for the graph command.
type GraphOptions struct {
	*RootOptions
	graphFlags
}

// GraphReport is the graph command's JSON payload.
type GraphReport struct {
	Nodes []NodeReport `json:"nodes"`
	Edges []EdgeReport `json:"edges"`
	Flags []string     `json:"flags"`
	Plan  []string     `json:"plan,omitempty"`

	// PlanError is set when no plan exists for the flags.
	PlanError string `json:"plan_error,omitempty"`
}

// NodeReport describes one graph node.
type NodeReport struct {
	Name         string   `json:"name"`
	InputKinds   []string `json:"inputs,omitempty"`
	OutputKind   string   `json:"output,omitempty"`
	Join         bool     `json:"join,omitempty"`
	WorksOnEmpty bool     `json:"empty,omitempty"`
}

// EdgeReport describes one edge in insertion order.
type EdgeReport struct {
	From    string `json:"from"`
	To      string `json:"to"`
	When    string `json:"when,omitempty"`
	Enabled bool   `json:"enabled"`
}

// NewGraphCommand creates the graph command.
func NewGraphCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &GraphOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Show the compilation graph and the plan for a set of flags",
		Long: `Print every tool and edge of the compilation graph, then the stages a
build would run with the given flags.

Example:
  tmlink graph
  tmlink graph -F optimize --graph ./mygraph.cue`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGraph(opts, cmd)
		},
	}
	opts.register(cmd)
	return cmd
}

func runGraph(opts *GraphOptions, cmd *cobra.Command) error {
	f := opts.formatter(cmd)
	cfg, err := opts.loadConfig(f)
	if err != nil {
		return err
	}
	if err := opts.apply(cmd, cfg); err != nil {
		return f.Fail(ExitCommandError, ErrCodeConfig, "invalid flags", err, nil)
	}

	log := opts.logger(cmd.ErrOrStderr())
	g, err := populateGraph(f, cfg, &pipeline.Transformer{Logger: log}, log)
	if err != nil {
		return err
	}

	report := describeGraph(g, cfg.Flags)
	if f.Format == "json" {
		return f.Success(report)
	}
	return f.Success(formatGraphReport(report))
}

// populateGraph compiles the configured graph definition and wires tr into
// its transform stages.
func populateGraph(f *OutputFormatter, cfg *config.Config, tr action.Transformer, log *slog.Logger) (*graph.Graph, error) {
	var (
		spec *compiler.GraphSpec
		err  error
	)
	source := cfg.Graph
	if source == "" {
		source = compiler.DefaultGraphName
		spec, err = compiler.DefaultGraph()
	} else {
		spec, err = compiler.LoadGraphFile(cfg.Graph)
	}
	if err != nil {
		return nil, f.Fail(ExitCommandError, ErrCodeGraph, "failed to compile graph "+source, err, nil)
	}

	g, err := compiler.Populate(spec, compiler.Deps{
		Transformer: tr,
		Params:      cfg.GraphParams(),
	})
	if err != nil {
		msg := "failed to build graph " + source
		if graph.IsConstructionError(err) {
			msg = "invalid graph structure in " + source
		}
		return nil, f.Fail(ExitCommandError, ErrCodeGraph, msg, err, nil)
	}
	log.Debug("graph ready", "source", source, "tools", len(spec.Tools), "edges", len(spec.Edges))
	return g, nil
}

func describeGraph(g *graph.Graph, flags graph.Flags) GraphReport {
	report := GraphReport{Flags: flags.Set()}
	names := append([]string{graph.RootName}, nodesExceptRoot(g)...)
	for _, name := range names {
		node, _ := g.Lookup(name)
		d := node.Descriptor()
		report.Nodes = append(report.Nodes, NodeReport{
			Name:         d.Name,
			InputKinds:   d.InputKinds,
			OutputKind:   d.OutputKind,
			Join:         d.Join,
			WorksOnEmpty: d.WorksOnEmpty,
		})
		for _, e := range g.Edges(name) {
			report.Edges = append(report.Edges, EdgeReport{
				From:    name,
				To:      e.Target,
				When:    e.Condition,
				Enabled: e.Enabled(flags),
			})
		}
	}

	plan, err := g.Plan(flags)
	if err != nil {
		report.PlanError = err.Error()
	} else {
		report.Plan = plan
	}
	return report
}

func nodesExceptRoot(g *graph.Graph) []string {
	var out []string
	for _, name := range g.Nodes() {
		if name != graph.RootName {
			out = append(out, name)
		}
	}
	return out
}

func formatGraphReport(r GraphReport) string {
	var b strings.Builder
	b.WriteString("nodes:\n")
	for _, n := range r.Nodes {
		fmt.Fprintf(&b, "  %s", n.Name)
		if len(n.InputKinds) > 0 {
			fmt.Fprintf(&b, " [%s]", strings.Join(n.InputKinds, ","))
		}
		if n.OutputKind != "" {
			fmt.Fprintf(&b, " -> %s", n.OutputKind)
		}
		if n.Join {
			b.WriteString(" join")
		}
		if n.WorksOnEmpty {
			b.WriteString(" empty")
		}
		b.WriteString("\n")
	}

	b.WriteString("edges:\n")
	for _, e := range r.Edges {
		fmt.Fprintf(&b, "  %s -> %s", e.From, e.To)
		if e.When != "" {
			fmt.Fprintf(&b, " when %s", e.When)
		}
		if !e.Enabled {
			b.WriteString(" (disabled)")
		}
		b.WriteString("\n")
	}

	flags := strings.Join(r.Flags, ",")
	if flags == "" {
		flags = "none"
	}
	fmt.Fprintf(&b, "flags: %s\n", flags)
	if r.PlanError != "" {
		fmt.Fprintf(&b, "plan: error: %s", r.PlanError)
	} else {
		fmt.Fprintf(&b, "plan: %s", strings.Join(r.Plan, " -> "))
	}
	return b.String()
}
