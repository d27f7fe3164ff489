package action

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/tmlink/internal/graph"
)

// Request is everything a tool needs to plan one invocation.
type Request struct {
	Inputs []string

	// HasDownstream is false when no later stage consumes the output.
	HasDownstream bool

	// OutputDir holds intermediate outputs.
	OutputDir string

	// FinalOutput, when set, names the output of the last stage.
	FinalOutput string

	// Name replaces the first input as the source of the output file name.
	Name string
}

// StopHere reports whether the output of this request is terminal.
func (r Request) StopHere() bool {
	return !r.HasDownstream
}

// outputName is the name OutputPath derives the intermediate file from.
func (r Request) outputName(fallback string) string {
	switch {
	case r.Name != "":
		return r.Name
	case len(r.Inputs) > 0:
		return r.Inputs[0]
	default:
		return fallback
	}
}

// Action is either *ExternalCommand or *InProcessWork.
type Action interface {
	Stage() string
	Result() string
	Terminal() bool
	isAction()
}

// ExternalCommand runs Command with Args as a child process.
type ExternalCommand struct {
	Tool     string
	Command  string
	Args     []string
	StopHere bool
	Output   string
}

func (c *ExternalCommand) Stage() string  { return c.Tool }
func (c *ExternalCommand) Result() string { return c.Output }
func (c *ExternalCommand) Terminal() bool { return c.StopHere }
func (*ExternalCommand) isAction()        {}

// InProcessWork is performed by calling Run. Args describe the work for logs
// and the journal only.
type InProcessWork struct {
	Tool     string
	Args     []string
	StopHere bool
	Output   string
	Run      func(ctx context.Context) error
}

func (w *InProcessWork) Stage() string  { return w.Tool }
func (w *InProcessWork) Result() string { return w.Output }
func (w *InProcessWork) Terminal() bool { return w.StopHere }
func (*InProcessWork) isAction()        {}

// Tool is a graph node that can generate actions.
type Tool interface {
	graph.Node
	Generate(req Request) (Action, error)
}

// ErrArityMismatch is matched by every *ArityError.
var ErrArityMismatch = errors.New("arity mismatch")

// ArityError reports a tool given the wrong number of inputs.
type ArityError struct {
	Tool string
	Join bool
	Got  int
}

func (e *ArityError) Error() string {
	want := "exactly one input"
	if e.Join {
		want = "one or more inputs"
	}
	return fmt.Sprintf("%s: tool %s needs %s, got %d", ErrArityMismatch, e.Tool, want, e.Got)
}

func (e *ArityError) Is(target error) bool {
	return target == ErrArityMismatch
}

// CheckArity validates inputs against d before any work is planned.
func CheckArity(d graph.Descriptor, inputs []string) error {
	n := len(inputs)
	switch {
	case n == 0 && d.WorksOnEmpty:
		return nil
	case d.Join && n >= 1:
		return nil
	case !d.Join && n == 1:
		return nil
	}
	return &ArityError{Tool: d.Name, Join: d.Join, Got: n}
}
