package passes

import "github.com/roach88/tmlink/internal/ir"

// TransactionAttr marks functions whose body runs inside a transaction.
const TransactionAttr = "transaction"

func init() {
	Register(Info{
		Argument:    "tm-instrument",
		Description: "Route loads and stores in transactional functions through the STM",
		New:         func() Pass { return &TMInstrument{} },
	})
}

// TMInstrument rewrites load/store to tmload/tmstore in every function
// carrying the transaction attribute.
type TMInstrument struct {
	// Rewritten counts instructions rewritten by the last Run.
	Rewritten int
}

func (*TMInstrument) Name() string { return "tm-instrument" }

func (p *TMInstrument) Run(m *ir.Module) error {
	p.Rewritten = 0
	for i := range m.Functions {
		f := &m.Functions[i]
		if f.IsDeclaration() || !f.HasAttr(TransactionAttr) {
			continue
		}
		for bi := range f.Blocks {
			instrs := f.Blocks[bi].Instrs
			for k := range instrs {
				switch instrs[k].Op {
				case ir.OpLoad:
					instrs[k].Op = ir.OpTMLoad
					p.Rewritten++
				case ir.OpStore:
					instrs[k].Op = ir.OpTMStore
					p.Rewritten++
				}
			}
		}
	}
	return nil
}
