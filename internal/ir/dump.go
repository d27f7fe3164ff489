package ir

import (
	"fmt"
	"io"
	"strings"
)

// Dump writes a deterministic text listing of m:
//
//	; module cart
//	target layout = "e-p:64:64"
//
//	@count = internal global 0
//
//	define external @main(%argc) #transaction {
//	entry:
//	  %x = load @count
//	  ret %x
//	}
func Dump(w io.Writer, m *Module) error {
	var b strings.Builder
	fmt.Fprintf(&b, "; module %s\n", m.Name)
	if m.TargetLayout != "" {
		fmt.Fprintf(&b, "target layout = %q\n", m.TargetLayout)
	}
	if len(m.Globals) > 0 {
		b.WriteString("\n")
		for _, g := range m.Globals {
			fmt.Fprintf(&b, "@%s = %s global %d\n", g.Name, g.Linkage, g.Init)
		}
	}
	for i := range m.Functions {
		b.WriteString("\n")
		dumpFunction(&b, &m.Functions[i])
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func dumpFunction(b *strings.Builder, f *Function) {
	keyword := "define"
	if f.IsDeclaration() {
		keyword = "declare"
	}
	fmt.Fprintf(b, "%s %s @%s(%s)", keyword, f.Linkage, f.Name, strings.Join(f.Params, ", "))
	for _, a := range f.Attrs {
		fmt.Fprintf(b, " #%s", a)
	}
	if f.IsDeclaration() {
		b.WriteString("\n")
		return
	}
	b.WriteString(" {\n")
	for _, blk := range f.Blocks {
		fmt.Fprintf(b, "%s:\n", blk.Label)
		for _, in := range blk.Instrs {
			b.WriteString("  ")
			b.WriteString(FormatInstr(in))
			b.WriteString("\n")
		}
	}
	b.WriteString("}\n")
}

// FormatInstr renders one instruction as it appears in Dump output.
func FormatInstr(in Instr) string {
	s := string(in.Op)
	if len(in.Args) > 0 {
		s += " " + strings.Join(in.Args, ", ")
	}
	if in.Result != "" {
		s = in.Result + " = " + s
	}
	return s
}
