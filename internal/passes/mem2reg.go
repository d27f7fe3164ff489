package passes

import "github.com/roach88/tmlink/internal/ir"

func init() {
	Register(Info{
		Argument:    "mem2reg",
		Description: "Promote block-local stack slots to values",
		New:         func() Pass { return &Mem2Reg{} },
	})
}

// Mem2Reg promotes allocas whose every use is the pointer operand of a load
// or store in the alloca's own block. Each load is replaced by the value of
// the closest preceding store in that block, or undef when there is none.
// Slots that escape or cross blocks are left in memory.
type Mem2Reg struct {
	// Promoted counts slots promoted by the last Run.
	Promoted int
}

func (*Mem2Reg) Name() string { return "mem2reg" }

func (p *Mem2Reg) Run(m *ir.Module) error {
	p.Promoted = 0
	for i := range m.Functions {
		p.Promoted += promoteFunction(&m.Functions[i])
	}
	return nil
}

func promoteFunction(f *ir.Function) int {
	home := make(map[string]int) // alloca result -> defining block
	for bi, b := range f.Blocks {
		for _, in := range b.Instrs {
			if in.Op == ir.OpAlloca && in.Result != "" {
				home[in.Result] = bi
			}
		}
	}
	if len(home) == 0 {
		return 0
	}

	escaped := make(map[string]bool)
	for bi, b := range f.Blocks {
		for _, in := range b.Instrs {
			for k, a := range in.Args {
				hb, ok := home[a]
				if !ok {
					continue
				}
				pointerUse := (in.Op == ir.OpLoad && k == 0) || (in.Op == ir.OpStore && k == 1)
				if !pointerUse || bi != hb {
					escaped[a] = true
				}
			}
		}
	}

	promotable := make(map[string]bool)
	for slot := range home {
		if !escaped[slot] {
			promotable[slot] = true
		}
	}
	if len(promotable) == 0 {
		return 0
	}

	// Pass 1: drop promoted instructions and record what each load becomes.
	replace := make(map[string]string)
	for bi := range f.Blocks {
		b := &f.Blocks[bi]
		current := make(map[string]string)
		kept := make([]ir.Instr, 0, len(b.Instrs))
		for _, in := range b.Instrs {
			switch {
			case in.Op == ir.OpAlloca && promotable[in.Result]:
			case in.Op == ir.OpStore && len(in.Args) == 2 && promotable[in.Args[1]]:
				current[in.Args[1]] = in.Args[0]
			case in.Op == ir.OpLoad && len(in.Args) == 1 && promotable[in.Args[0]]:
				val, ok := current[in.Args[0]]
				if !ok {
					val = ir.Undef
				}
				replace[in.Result] = val
			default:
				kept = append(kept, in)
			}
		}
		b.Instrs = kept
	}

	// Pass 2: rewrite every remaining use, following chains of replaced loads.
	resolve := func(s string) string {
		for range len(replace) + 1 {
			r, ok := replace[s]
			if !ok {
				break
			}
			s = r
		}
		return s
	}
	for bi := range f.Blocks {
		for ii := range f.Blocks[bi].Instrs {
			args := f.Blocks[bi].Instrs[ii].Args
			for k := range args {
				args[k] = resolve(args[k])
			}
		}
	}

	return len(promotable)
}
