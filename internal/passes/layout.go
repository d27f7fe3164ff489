package passes

import "github.com/roach88/tmlink/internal/ir"

func init() {
	Register(Info{
		Argument:    "target-layout",
		Description: "Annotate the module with its target data layout",
		New:         func() Pass { return NewTargetLayout("") },
	})
}

// TargetLayout records the data layout the rest of the pipeline assumes.
type TargetLayout struct {
	Layout string
}

// NewTargetLayout returns a layout pass. An empty layout keeps the module's
// own, falling back to ir.DefaultTargetLayout.
func NewTargetLayout(layout string) *TargetLayout {
	return &TargetLayout{Layout: layout}
}

func (*TargetLayout) Name() string { return "target-layout" }

func (p *TargetLayout) Run(m *ir.Module) error {
	switch {
	case p.Layout != "":
		m.TargetLayout = p.Layout
	case m.TargetLayout == "":
		m.TargetLayout = ir.DefaultTargetLayout
	}
	return nil
}
