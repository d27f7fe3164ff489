package driver

import (
	"fmt"
	"io"
	"strings"

	"github.com/roach88/tmlink/internal/action"
)

// FormatActions writes one line per action:
//
//	[llvm_link_together] llvm-link a.bc b.bc -o w/01-llvm_link_together/a.bc
//	[llvm_tm_linker] (in-process) --pass=tm-instrument ... -o out.bc (final)
func FormatActions(w io.Writer, actions []action.Action) error {
	for _, a := range actions {
		if _, err := fmt.Fprintln(w, FormatAction(a)); err != nil {
			return err
		}
	}
	return nil
}

// FormatAction renders a single action as FormatActions does.
func FormatAction(a action.Action) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] ", a.Stage())
	b.WriteString(strings.Join(commandLine(a), " "))
	if a.Terminal() {
		b.WriteString(" (final)")
	}
	return b.String()
}

// commandLine is the journal and listing form of an action.
func commandLine(a action.Action) []string {
	switch a := a.(type) {
	case *action.ExternalCommand:
		return append([]string{a.Command}, a.Args...)
	case *action.InProcessWork:
		return append([]string{"(in-process)"}, a.Args...)
	}
	return nil
}
