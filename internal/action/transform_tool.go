package action

import (
	"context"

	"github.com/roach88/tmlink/internal/graph"
)

// Transformer runs the module transformation pipeline.
type Transformer interface {
	Transform(ctx context.Context, inputPath, outputPath, passName string) error
}

// TransformTool is a stage performed in process by a Transformer. Its
// descriptor should not be a join.
type TransformTool struct {
	Desc        graph.Descriptor
	Suffix      string
	Pass        string
	Transformer Transformer
}

func (t *TransformTool) Descriptor() graph.Descriptor { return t.Desc }

func (t *TransformTool) Generate(req Request) (Action, error) {
	if err := CheckArity(t.Desc, req.Inputs); err != nil {
		return nil, err
	}
	// A transformation always works on exactly one module.
	if len(req.Inputs) != 1 {
		return nil, &ArityError{Tool: t.Desc.Name, Got: len(req.Inputs)}
	}

	in := req.Inputs[0]
	out := OutputPath(req.outputName(in), req.OutputDir, t.Suffix, req.StopHere(), req.FinalOutput)
	pass := t.Pass
	tr := t.Transformer

	return &InProcessWork{
		Tool: t.Desc.Name,
		Args: SortArgs([]Arg{
			{Priority: PriorityFirst, Value: "--pass=" + pass},
			{Priority: PriorityFirst, Value: in},
			{Priority: PriorityOutput, Value: "-o"},
			{Priority: PriorityOutput, Value: out},
		}),
		StopHere: req.StopHere(),
		Output:   out,
		Run: func(ctx context.Context) error {
			return tr.Transform(ctx, in, out, pass)
		},
	}, nil
}
