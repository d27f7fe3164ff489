package testutil

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/tmlink/internal/ir"
)

// SampleModule returns a small well-formed module that exercises every
// pipeline stage: a promotable alloca in main, a transactional function,
// a dead instruction and an external declaration.
func SampleModule() *ir.Module {
	return &ir.Module{
		Name: "sample",
		Globals: []ir.Global{
			{Name: "counter", Linkage: ir.LinkageExternal},
			{Name: "limit", Linkage: ir.LinkageExternal, Init: 10},
		},
		Functions: []ir.Function{
			{
				Name:    "main",
				Linkage: ir.LinkageExternal,
				Params:  []string{"%argc"},
				Blocks: []ir.Block{{
					Label: "entry",
					Instrs: []ir.Instr{
						{Result: "%slot", Op: ir.OpAlloca},
						{Op: ir.OpStore, Args: []string{"%argc", "%slot"}},
						{Result: "%v", Op: ir.OpLoad, Args: []string{"%slot"}},
						{Result: "%r", Op: ir.OpCall, Args: []string{"@transfer", "%v"}},
						{Op: ir.OpRet, Args: []string{"%r"}},
					},
				}},
			},
			{
				Name:    "transfer",
				Linkage: ir.LinkageExternal,
				Params:  []string{"%amount"},
				Attrs:   []string{"transaction"},
				Blocks: []ir.Block{{
					Label: "entry",
					Instrs: []ir.Instr{
						{Result: "%old", Op: ir.OpLoad, Args: []string{"@counter"}},
						{Result: "%new", Op: ir.OpAdd, Args: []string{"%old", "%amount"}},
						{Op: ir.OpStore, Args: []string{"%new", "@counter"}},
						{Op: ir.OpRet, Args: []string{"%new"}},
					},
				}},
			},
			{
				Name:    "helper",
				Linkage: ir.LinkageExternal,
				Params:  []string{"%a"},
				Blocks: []ir.Block{{
					Label: "entry",
					Instrs: []ir.Instr{
						{Result: "%dead", Op: ir.OpMul, Args: []string{"%a", "2"}},
						{Op: ir.OpRet, Args: []string{"%a"}},
					},
				}},
			},
			{
				Name:    "tm_begin",
				Linkage: ir.LinkageExternal,
			},
		},
	}
}

// WriteModule encodes m into dir/name and returns the path.
func WriteModule(t *testing.T, dir, name string, m *ir.Module) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, ir.WriteFile(path, m))
	return path
}

// ModuleHash returns the content hash of m, failing the test on error.
func ModuleHash(t *testing.T, m *ir.Module) string {
	t.Helper()
	h, err := ir.ModuleHash(m)
	require.NoError(t, err)
	return h
}
