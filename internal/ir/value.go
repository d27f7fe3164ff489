package ir

import (
	"slices"
	"unicode/utf16"
)

// Value is a sealed interface over the payload tree that MarshalCanonical
// serializes. Only String, Int, Bool, List and Object implement it.
// There is no float and no null.
type Value interface {
	value()
}

// String is a string payload value.
type String string

func (String) value() {}

// Int is an integer payload value.
type Int int64

func (Int) value() {}

// Bool is a boolean payload value.
type Bool bool

func (Bool) value() {}

// List is an ordered payload list.
type List []Value

func (List) value() {}

// Object is a keyed payload object. Use SortedKeys for deterministic iteration.
type Object map[string]Value

func (Object) value() {}

// Strings converts a string slice to a List.
func Strings(ss []string) List {
	l := make(List, len(ss))
	for i, s := range ss {
		l[i] = String(s)
	}
	return l
}

// SortedKeys returns keys in canonical order (UTF-16 code units).
// Go's string comparison orders by UTF-8 bytes, which differs for
// characters outside the BMP.
func (obj Object) SortedKeys() []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeysUTF16)
	return keys
}

func compareKeysUTF16(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))

	n := min(len(a16), len(b16))
	for i := 0; i < n; i++ {
		if a16[i] != b16[i] {
			if a16[i] < b16[i] {
				return -1
			}
			return 1
		}
	}

	switch {
	case len(a16) < len(b16):
		return -1
	case len(a16) > len(b16):
		return 1
	}
	return 0
}

// toValue builds the payload tree for m. Keys mirror the json tags on the
// model types so the payload decodes with encoding/json; empty optional
// fields are omitted the same way omitempty would.
func (m *Module) toValue() Object {
	obj := Object{"name": String(m.Name)}
	if m.TargetLayout != "" {
		obj["target_layout"] = String(m.TargetLayout)
	}
	if len(m.Globals) > 0 {
		globals := make(List, len(m.Globals))
		for i, g := range m.Globals {
			gv := Object{
				"name":    String(g.Name),
				"linkage": String(g.Linkage),
			}
			if g.Init != 0 {
				gv["init"] = Int(g.Init)
			}
			globals[i] = gv
		}
		obj["globals"] = globals
	}
	if len(m.Functions) > 0 {
		funcs := make(List, len(m.Functions))
		for i := range m.Functions {
			funcs[i] = m.Functions[i].toValue()
		}
		obj["functions"] = funcs
	}
	return obj
}

func (f *Function) toValue() Object {
	obj := Object{
		"name":    String(f.Name),
		"linkage": String(f.Linkage),
	}
	if len(f.Params) > 0 {
		obj["params"] = Strings(f.Params)
	}
	if len(f.Attrs) > 0 {
		obj["attrs"] = Strings(f.Attrs)
	}
	if len(f.Blocks) > 0 {
		blocks := make(List, len(f.Blocks))
		for i, b := range f.Blocks {
			instrs := make(List, len(b.Instrs))
			for j, in := range b.Instrs {
				iv := Object{"op": String(in.Op)}
				if in.Result != "" {
					iv["result"] = String(in.Result)
				}
				if len(in.Args) > 0 {
					iv["args"] = Strings(in.Args)
				}
				instrs[j] = iv
			}
			blocks[i] = Object{
				"label":  String(b.Label),
				"instrs": instrs,
			}
		}
		obj["blocks"] = blocks
	}
	return obj
}
