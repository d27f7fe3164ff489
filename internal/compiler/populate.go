package compiler

import (
	"fmt"
	"maps"
	"strings"

	"github.com/roach88/tmlink/internal/action"
	"github.com/roach88/tmlink/internal/graph"
)

// Deps are the collaborators Populate wires into tools.
type Deps struct {
	// Transformer performs transform stages.
	Transformer action.Transformer

	// Params resolve ${name} placeholders. "pass" names the pass for
	// transform stages.
	Params map[string]string
}

// Populate builds a graph from spec: every tool first, then every edge.
// It stops at the first construction error; the partial graph is discarded.
func Populate(spec *GraphSpec, deps Deps) (*graph.Graph, error) {
	g := graph.New()

	for _, ts := range spec.Tools {
		tool, err := buildTool(ts, deps)
		if err != nil {
			return nil, err
		}
		if err := g.InsertNode(tool); err != nil {
			return nil, fmt.Errorf("tool %s: %w", ts.Name, err)
		}
	}

	for _, es := range spec.Edges {
		e := graph.Edge{
			Target:    es.To,
			When:      parseWhen(es.When),
			Condition: es.When,
		}
		if err := g.InsertEdge(es.From, e); err != nil {
			return nil, fmt.Errorf("edge %s -> %s: %w", es.From, es.To, err)
		}
	}
	return g, nil
}

func buildTool(ts ToolSpec, deps Deps) (action.Tool, error) {
	desc := graph.Descriptor{
		Name:         ts.Name,
		InputKinds:   ts.InputKinds,
		OutputKind:   ts.OutputKind,
		Join:         ts.Join,
		WorksOnEmpty: ts.WorksOnEmpty,
	}

	if ts.Transform != nil {
		if deps.Transformer == nil {
			return nil, &CompileError{Field: ts.Name, Message: "transform stage without a transformer", Pos: ts.Pos}
		}
		pass, err := action.Expand(ts.Transform.Pass, deps.Params)
		if err != nil {
			return nil, &CompileError{Field: ts.Name + ".transform.pass", Message: err.Error(), Pos: ts.Pos}
		}
		return &action.TransformTool{
			Desc:        desc,
			Suffix:      ts.Suffix,
			Pass:        pass,
			Transformer: deps.Transformer,
		}, nil
	}

	// Catch unknown placeholders now rather than midway through a build.
	probe := map[string]string{action.VarInFile: "", action.VarInFiles: "", action.VarOutFile: ""}
	maps.Copy(probe, deps.Params)
	for _, a := range ts.Args {
		if _, err := action.Expand(a.Value, probe); err != nil {
			return nil, &CompileError{Field: ts.Name + ".args", Message: err.Error(), Pos: ts.Pos}
		}
	}

	return &action.CommandTool{
		Desc:    desc,
		Command: ts.Command,
		Args:    ts.Args,
		Suffix:  ts.Suffix,
		Params:  maps.Clone(deps.Params),
	}, nil
}

// parseWhen maps "" to always, "flag" to FlagSet and "!flag" to its negation.
func parseWhen(when string) graph.Predicate {
	switch {
	case when == "":
		return nil
	case strings.HasPrefix(when, "!"):
		return graph.Not(graph.FlagSet(when[1:]))
	default:
		return graph.FlagSet(when)
	}
}
