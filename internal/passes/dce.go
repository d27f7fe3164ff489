package passes

import "github.com/roach88/tmlink/internal/ir"

func init() {
	Register(Info{
		Argument:    "dce",
		Description: "Remove unused instructions without side effects",
		New:         func() Pass { return &DCE{} },
	})
	Register(Info{
		Argument:    "noop",
		Description: "Leave the module unchanged",
		New:         func() Pass { return Noop{} },
	})
}

// DCE deletes instructions whose result is never used and that have no side
// effects, repeating until nothing changes.
type DCE struct {
	// Removed counts instructions deleted by the last Run.
	Removed int
}

func (*DCE) Name() string { return "dce" }

func (p *DCE) Run(m *ir.Module) error {
	p.Removed = 0
	for i := range m.Functions {
		p.Removed += eliminateDead(&m.Functions[i])
	}
	return nil
}

func eliminateDead(f *ir.Function) int {
	removed := 0
	for {
		uses := make(map[string]int)
		for _, b := range f.Blocks {
			for _, in := range b.Instrs {
				for _, a := range in.Args {
					if ir.IsLocal(a) {
						uses[a]++
					}
				}
			}
		}

		changed := false
		for bi := range f.Blocks {
			b := &f.Blocks[bi]
			kept := make([]ir.Instr, 0, len(b.Instrs))
			for _, in := range b.Instrs {
				if in.Result != "" && !ir.Opcodes[in.Op].SideEffects && uses[in.Result] == 0 {
					removed++
					changed = true
					continue
				}
				kept = append(kept, in)
			}
			b.Instrs = kept
		}
		if !changed {
			return removed
		}
	}
}

// Noop does nothing. It exists so a pipeline can run without a real
// transformation in the selectable slot.
type Noop struct{}

func (Noop) Name() string { return "noop" }

func (Noop) Run(*ir.Module) error { return nil }
