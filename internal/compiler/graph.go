package compiler

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/token"

	"github.com/roach88/tmlink/internal/action"
)

//go:embed default_graph.cue
var defaultGraphSource []byte

// DefaultGraphName is the file name reported in positions inside the
// built-in definition.
const DefaultGraphName = "default_graph.cue"

// GraphSpec is a compiled graph definition.
type GraphSpec struct {
	Tools []ToolSpec
	Edges []EdgeSpec
}

// ToolSpec describes one tool. Exactly one of Command or Transform is set.
type ToolSpec struct {
	Name         string
	InputKinds   []string
	OutputKind   string
	Join         bool
	WorksOnEmpty bool
	Suffix       string

	Command   string
	Args      []action.Arg
	Transform *TransformSpec

	Pos token.Pos
}

// TransformSpec configures an in-process transformation stage.
type TransformSpec struct {
	Pass string
}

// EdgeSpec is a gated link between two tools.
type EdgeSpec struct {
	From string
	To   string
	When string
	Pos  token.Pos
}

// DefaultGraph compiles the built-in tmlink graph.
func DefaultGraph() (*GraphSpec, error) {
	return compileSource(defaultGraphSource, DefaultGraphName)
}

// LoadGraphFile compiles the definition in path.
func LoadGraphFile(path string) (*GraphSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read graph definition: %w", err)
	}
	return compileSource(data, path)
}

func compileSource(data []byte, filename string) (*GraphSpec, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(data, cue.Filename(filename))
	return CompileGraph(v)
}

// CompileGraph parses a CUE value holding tools and edges.
func CompileGraph(v cue.Value) (*GraphSpec, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	spec := &GraphSpec{}
	var err error

	spec.Tools, err = parseTools(v)
	if err != nil {
		return nil, err
	}
	spec.Edges, err = parseEdges(v)
	if err != nil {
		return nil, err
	}
	return spec, nil
}

func parseTools(v cue.Value) ([]ToolSpec, error) {
	toolsVal := v.LookupPath(cue.ParsePath("tools"))
	if !toolsVal.Exists() {
		return nil, &CompileError{Field: "tools", Message: "tools is required", Pos: v.Pos()}
	}

	iter, err := toolsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var tools []ToolSpec
	for iter.Next() {
		tool, err := parseTool(iter.Label(), iter.Value())
		if err != nil {
			return nil, err
		}
		tools = append(tools, tool)
	}
	if len(tools) == 0 {
		return nil, &CompileError{Field: "tools", Message: "at least one tool is required", Pos: toolsVal.Pos()}
	}
	return tools, nil
}

func parseTool(name string, v cue.Value) (ToolSpec, error) {
	tool := ToolSpec{Name: name, Pos: v.Pos()}
	field := func(f string) string { return "tools." + name + "." + f }

	inVal := v.LookupPath(cue.ParsePath("inputs"))
	if !inVal.Exists() {
		return tool, &CompileError{Field: field("inputs"), Message: "inputs is required", Pos: v.Pos()}
	}
	var err error
	tool.InputKinds, err = stringList(inVal)
	if err != nil {
		return tool, err
	}

	if tool.OutputKind, err = requiredString(v, "output", field("output")); err != nil {
		return tool, err
	}
	if tool.Join, err = optionalBool(v, "join"); err != nil {
		return tool, err
	}
	if tool.WorksOnEmpty, err = optionalBool(v, "empty"); err != nil {
		return tool, err
	}
	if tool.Suffix, err = optionalString(v, "suffix"); err != nil {
		return tool, err
	}

	cmdVal := v.LookupPath(cue.ParsePath("cmd"))
	transformVal := v.LookupPath(cue.ParsePath("transform"))
	switch {
	case cmdVal.Exists() && transformVal.Exists():
		return tool, &CompileError{Field: field("cmd"), Message: "cmd and transform are mutually exclusive", Pos: cmdVal.Pos()}
	case cmdVal.Exists():
		if tool.Command, err = cmdVal.String(); err != nil {
			return tool, formatCUEError(err)
		}
		if tool.Args, err = parseArgs(v); err != nil {
			return tool, err
		}
	case transformVal.Exists():
		pass, err := requiredString(transformVal, "pass", field("transform.pass"))
		if err != nil {
			return tool, err
		}
		tool.Transform = &TransformSpec{Pass: pass}
	default:
		return tool, &CompileError{Field: name, Message: "tool needs cmd or transform", Pos: v.Pos()}
	}

	return tool, nil
}

func parseArgs(v cue.Value) ([]action.Arg, error) {
	argsVal := v.LookupPath(cue.ParsePath("args"))
	if !argsVal.Exists() {
		return nil, nil
	}
	iter, err := argsVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var args []action.Arg
	for iter.Next() {
		item := iter.Value()
		var arg action.Arg

		// A bare string is shorthand for priority 0.
		if s, err := item.String(); err == nil {
			args = append(args, action.Arg{Value: s})
			continue
		}

		if arg.Value, err = requiredString(item, "value", "args.value"); err != nil {
			return nil, err
		}
		prioVal := item.LookupPath(cue.ParsePath("priority"))
		if prioVal.Exists() {
			p, err := prioVal.Int64()
			if err != nil {
				return nil, formatCUEError(err)
			}
			arg.Priority = int(p)
		}
		args = append(args, arg)
	}
	return args, nil
}

func parseEdges(v cue.Value) ([]EdgeSpec, error) {
	edgesVal := v.LookupPath(cue.ParsePath("edges"))
	if !edgesVal.Exists() {
		return nil, nil
	}
	iter, err := edgesVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var edges []EdgeSpec
	for iter.Next() {
		item := iter.Value()
		e := EdgeSpec{Pos: item.Pos()}
		if e.From, err = requiredString(item, "from", "edges.from"); err != nil {
			return nil, err
		}
		if e.To, err = requiredString(item, "to", "edges.to"); err != nil {
			return nil, err
		}
		if e.When, err = optionalString(item, "when"); err != nil {
			return nil, err
		}
		if strings.TrimPrefix(e.When, "!") == "" && e.When != "" {
			return nil, &CompileError{Field: "edges.when", Message: "negation needs a flag name", Pos: item.Pos()}
		}
		edges = append(edges, e)
	}
	return edges, nil
}

func stringList(v cue.Value) ([]string, error) {
	iter, err := v.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var out []string
	for iter.Next() {
		s, err := iter.Value().String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		out = append(out, s)
	}
	return out, nil
}

func requiredString(v cue.Value, path, field string) (string, error) {
	val := v.LookupPath(cue.ParsePath(path))
	if !val.Exists() {
		return "", &CompileError{Field: field, Message: path + " is required", Pos: v.Pos()}
	}
	s, err := val.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	if s == "" {
		return "", &CompileError{Field: field, Message: path + " must not be empty", Pos: val.Pos()}
	}
	return s, nil
}

func optionalString(v cue.Value, path string) (string, error) {
	val := v.LookupPath(cue.ParsePath(path))
	if !val.Exists() {
		return "", nil
	}
	s, err := val.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

func optionalBool(v cue.Value, path string) (bool, error) {
	val := v.LookupPath(cue.ParsePath(path))
	if !val.Exists() {
		return false, nil
	}
	b, err := val.Bool()
	if err != nil {
		return false, formatCUEError(err)
	}
	return b, nil
}
