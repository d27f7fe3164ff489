package action

import (
	"fmt"
	"os"
	"strings"

	"github.com/roach88/tmlink/internal/graph"
)

// Template variables understood by CommandTool.
const (
	VarInFile  = "INFILE"
	VarInFiles = "INFILES"
	VarOutFile = "OUTFILE"
)

// CommandTool is a stage backed by an external program. Argument values are
// templates: $INFILE, $OUTFILE and ${name} for any entry in Params. An
// argument that is exactly $INFILES becomes one argument per input.
type CommandTool struct {
	Desc    graph.Descriptor
	Command string
	Args    []Arg
	Suffix  string
	Params  map[string]string
}

func (t *CommandTool) Descriptor() graph.Descriptor { return t.Desc }

func (t *CommandTool) Generate(req Request) (Action, error) {
	if err := CheckArity(t.Desc, req.Inputs); err != nil {
		return nil, err
	}

	out := OutputPath(req.outputName(t.Desc.Name), req.OutputDir, t.Suffix, req.StopHere(), req.FinalOutput)

	vars := map[string]string{VarOutFile: out}
	if len(req.Inputs) > 0 {
		vars[VarInFile] = req.Inputs[0]
	}
	for k, v := range t.Params {
		if _, reserved := vars[k]; !reserved {
			vars[k] = v
		}
	}

	var expanded []Arg
	for _, a := range t.Args {
		if a.Value == "$"+VarInFiles || a.Value == "${"+VarInFiles+"}" {
			for _, in := range req.Inputs {
				expanded = append(expanded, Arg{Priority: a.Priority, Value: in})
			}
			continue
		}
		v, err := Expand(a.Value, vars)
		if err != nil {
			return nil, fmt.Errorf("tool %s: %w", t.Desc.Name, err)
		}
		expanded = append(expanded, Arg{Priority: a.Priority, Value: v})
	}

	return &ExternalCommand{
		Tool:     t.Desc.Name,
		Command:  t.Command,
		Args:     SortArgs(expanded),
		StopHere: req.StopHere(),
		Output:   out,
	}, nil
}

// Expand substitutes $name and ${name} from vars. Unknown names are an
// error rather than an empty string.
func Expand(s string, vars map[string]string) (string, error) {
	var missing []string
	out := os.Expand(s, func(name string) string {
		v, ok := vars[name]
		if !ok {
			missing = append(missing, name)
		}
		return v
	})
	if len(missing) > 0 {
		return "", fmt.Errorf("unknown variable %s in %q", strings.Join(missing, ", "), s)
	}
	return out, nil
}
