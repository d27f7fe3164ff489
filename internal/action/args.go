package action

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"
)

// Arg is a command-line argument with a sort priority. Lower priorities come
// first; equal priorities keep their declaration order.
type Arg struct {
	Priority int
	Value    string
}

// Common priorities.
const (
	PriorityFirst  = 0
	PriorityOutput = 65536
)

// SortArgs returns the argument values in priority order.
func SortArgs(args []Arg) []string {
	sorted := slices.Clone(args)
	slices.SortStableFunc(sorted, func(a, b Arg) int {
		return a.Priority - b.Priority
	})
	out := make([]string, len(sorted))
	for i, a := range sorted {
		out[i] = a.Value
	}
	return out
}

// OutputPath derives where a stage writes its result. A terminal stage with
// a requested final output writes there; everything else writes
// dir/<input stem>.<suffix>.
func OutputPath(input, dir, suffix string, stopHere bool, finalOutput string) string {
	if stopHere && finalOutput != "" {
		return finalOutput
	}
	base := filepath.Base(input)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if suffix != "" {
		stem += "." + suffix
	}
	return filepath.Join(dir, stem)
}

// UniqueNames returns the base names of inputs, numbering repeated stems so
// that each input gets its own intermediate file: a/x.bc and b/x.bc become
// x.bc and x-2.bc.
func UniqueNames(inputs []string) []string {
	used := make(map[string]bool, len(inputs))
	out := make([]string, len(inputs))
	for i, in := range inputs {
		base := filepath.Base(in)
		ext := filepath.Ext(base)
		stem := strings.TrimSuffix(base, ext)
		name := stem
		for n := 2; used[name]; n++ {
			name = fmt.Sprintf("%s-%d", stem, n)
		}
		used[name] = true
		out[i] = name + ext
	}
	return out
}
