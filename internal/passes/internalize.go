package passes

import "github.com/roach88/tmlink/internal/ir"

func init() {
	Register(Info{
		Argument:    "internalize",
		Description: "Give every definition except the entry points internal linkage",
		New:         func() Pass { return NewInternalize() },
	})
}

// DefaultEntryPoints are preserved when no entry points are configured.
var DefaultEntryPoints = []string{"main"}

// Internalize marks every defined symbol that is not an entry point as
// internal. Declarations keep their linkage: they are resolved elsewhere.
type Internalize struct {
	EntryPoints []string
}

// NewInternalize preserves the given entry points, or DefaultEntryPoints
// when none are given.
func NewInternalize(entryPoints ...string) *Internalize {
	if len(entryPoints) == 0 {
		entryPoints = DefaultEntryPoints
	}
	return &Internalize{EntryPoints: entryPoints}
}

func (*Internalize) Name() string { return "internalize" }

func (p *Internalize) Run(m *ir.Module) error {
	keep := make(map[string]bool, len(p.EntryPoints))
	for _, name := range p.EntryPoints {
		keep[name] = true
	}

	for i := range m.Globals {
		if !keep[m.Globals[i].Name] {
			m.Globals[i].Linkage = ir.LinkageInternal
		}
	}
	for i := range m.Functions {
		f := &m.Functions[i]
		if f.IsDeclaration() || keep[f.Name] {
			continue
		}
		f.Linkage = ir.LinkageInternal
	}
	return nil
}
