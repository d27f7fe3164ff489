package passes

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/roach88/tmlink/internal/ir"
)

// Pass is a single unit of work over a module. A Pass instance is used for
// one pipeline run and then discarded.
type Pass interface {
	Name() string
	Run(m *ir.Module) error
}

// Info describes a registered pass.
type Info struct {
	// Argument is the exact name used to select the pass.
	Argument string

	// Description is a one-line summary for listings.
	Description string

	// New returns a fresh instance configured with defaults.
	New func() Pass
}

var registry = struct {
	sync.RWMutex
	infos map[string]Info
}{infos: make(map[string]Info)}

// Register adds info to the process-wide registry. It is meant to be called
// from init functions and panics on an empty or duplicate argument.
func Register(info Info) {
	if strings.TrimSpace(info.Argument) == "" {
		panic("passes: Register called with empty argument")
	}
	if info.New == nil {
		panic(fmt.Sprintf("passes: Register(%q) without constructor", info.Argument))
	}

	registry.Lock()
	defer registry.Unlock()
	if _, dup := registry.infos[info.Argument]; dup {
		panic(fmt.Sprintf("passes: duplicate registration of %q", info.Argument))
	}
	registry.infos[info.Argument] = info
}

// FindByName returns a new instance of the pass registered under exactly
// name, or (nil, false) if no registered pass declares that argument.
func FindByName(name string) (Pass, bool) {
	info, ok := lookup(name)
	if !ok {
		return nil, false
	}
	return info.New(), true
}

// lookup walks the whole registry rather than indexing it; one lookup runs
// per pipeline invocation.
func lookup(name string) (Info, bool) {
	registry.RLock()
	defer registry.RUnlock()
	for _, info := range registry.infos {
		if info.Argument == name {
			return info, true
		}
	}
	return Info{}, false
}

// List returns every registered pass sorted by argument.
func List() []Info {
	registry.RLock()
	infos := make([]Info, 0, len(registry.infos))
	for _, info := range registry.infos {
		infos = append(infos, info)
	}
	registry.RUnlock()

	slices.SortFunc(infos, func(a, b Info) int {
		return strings.Compare(a.Argument, b.Argument)
	})
	return infos
}
