package passes

import (
	"fmt"
	"strings"

	"github.com/roach88/tmlink/internal/ir"
)

func init() {
	Register(Info{
		Argument:    "verify",
		Description: "Check the structural validity of the module",
		New:         func() Pass { return Verifier{} },
	})
}

// VerifyError lists every structural problem found in a module.
type VerifyError struct {
	Module   string
	Problems []string
}

func (e *VerifyError) Error() string {
	return fmt.Sprintf("module %q failed verification: %s", e.Module, strings.Join(e.Problems, "; "))
}

// Verifier is the verification pass.
type Verifier struct{}

func (Verifier) Name() string { return "verify" }

func (Verifier) Run(m *ir.Module) error {
	return Verify(m)
}

// Verify checks m and returns a *VerifyError describing all problems, or nil.
// It does not check dominance; a value only has to be defined somewhere in
// its function.
func Verify(m *ir.Module) error {
	v := &verifier{symbols: make(map[string]symbolKind)}
	v.module(m)
	if len(v.problems) == 0 {
		return nil
	}
	return &VerifyError{Module: m.Name, Problems: v.problems}
}

type symbolKind int

const (
	symbolGlobal symbolKind = iota + 1
	symbolFunction
)

type verifier struct {
	symbols  map[string]symbolKind
	problems []string
}

func (v *verifier) addf(format string, args ...any) {
	v.problems = append(v.problems, fmt.Sprintf(format, args...))
}

func (v *verifier) declare(name string, kind symbolKind, linkage string) {
	if name == "" {
		v.addf("unnamed symbol")
		return
	}
	if _, dup := v.symbols[name]; dup {
		v.addf("duplicate symbol @%s", name)
	}
	v.symbols[name] = kind
	if !ir.ValidLinkages[linkage] {
		v.addf("@%s: invalid linkage %q", name, linkage)
	}
}

func (v *verifier) module(m *ir.Module) {
	if m.Name == "" {
		v.addf("module has no name")
	}
	for _, g := range m.Globals {
		v.declare(g.Name, symbolGlobal, g.Linkage)
	}
	for _, f := range m.Functions {
		v.declare(f.Name, symbolFunction, f.Linkage)
	}
	for i := range m.Functions {
		v.function(&m.Functions[i])
	}
}

func (v *verifier) function(f *ir.Function) {
	if f.IsDeclaration() {
		return
	}
	fn := "@" + f.Name

	defined := make(map[string]bool)
	for _, p := range f.Params {
		if !ir.IsLocal(p) {
			v.addf("%s: parameter %q must start with %%", fn, p)
		}
		if defined[p] {
			v.addf("%s: duplicate parameter %s", fn, p)
		}
		defined[p] = true
	}

	labels := make(map[string]bool)
	for _, b := range f.Blocks {
		if b.Label == "" {
			v.addf("%s: block without label", fn)
		} else if labels[b.Label] {
			v.addf("%s: duplicate block label %q", fn, b.Label)
		}
		labels[b.Label] = true

		for _, in := range b.Instrs {
			if in.Result == "" {
				continue
			}
			if !ir.IsLocal(in.Result) {
				v.addf("%s: result %q must start with %%", fn, in.Result)
			}
			if defined[in.Result] {
				v.addf("%s: value %s defined more than once", fn, in.Result)
			}
			defined[in.Result] = true
		}
	}

	for _, b := range f.Blocks {
		at := fn + ":" + b.Label
		if len(b.Instrs) == 0 {
			v.addf("%s: empty block", at)
			continue
		}
		for j, in := range b.Instrs {
			v.instr(at, in, j == len(b.Instrs)-1, defined, labels)
		}
	}
}

func (v *verifier) instr(at string, in ir.Instr, last bool, defined, labels map[string]bool) {
	info, ok := ir.Opcodes[in.Op]
	if !ok {
		v.addf("%s: unknown opcode %q", at, in.Op)
		return
	}

	switch term := in.Op.IsTerminator(); {
	case term && !last:
		v.addf("%s: %s before end of block", at, in.Op)
	case !term && last:
		v.addf("%s: block does not end in a terminator", at)
	}

	n := len(in.Args)
	if n < info.MinArgs || (info.MaxArgs >= 0 && n > info.MaxArgs) {
		v.addf("%s: %s has %d operands", at, in.Op, n)
		return
	}

	if info.Result && !info.ResultOpt && in.Result == "" {
		v.addf("%s: %s must name a result", at, in.Op)
	}
	if !info.Result && in.Result != "" {
		v.addf("%s: %s does not produce a value", at, in.Op)
	}

	operands := in.ValueOperands()
	if in.Op == ir.OpCall {
		callee := in.Args[0]
		if !ir.IsGlobalRef(callee) || v.symbols[callee[1:]] != symbolFunction {
			v.addf("%s: call target %s is not a function", at, callee)
		}
		operands = operands[1:]
	}
	for _, a := range operands {
		v.operand(at, a, defined)
	}
	for _, l := range in.Labels() {
		if !labels[l] {
			v.addf("%s: branch to unknown block %q", at, l)
		}
	}
}

func (v *verifier) operand(at, a string, defined map[string]bool) {
	switch {
	case ir.IsLocal(a):
		if !defined[a] {
			v.addf("%s: use of undefined value %s", at, a)
		}
	case ir.IsGlobalRef(a):
		if _, ok := v.symbols[a[1:]]; !ok {
			v.addf("%s: reference to unknown symbol %s", at, a)
		}
	case ir.IsLiteral(a):
	default:
		v.addf("%s: invalid operand %q", at, a)
	}
}
