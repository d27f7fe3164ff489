package testutil

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tmlink/internal/action"
	"github.com/roach88/tmlink/internal/ir"
)

func TestFixedIDGenerator_ReturnsSameID(t *testing.T) {
	gen := NewFixedIDGenerator("run-123")

	assert.Equal(t, "run-123", gen.Generate())
	assert.Equal(t, "run-123", gen.Generate())
}

func TestFixedIDGenerator_EmptyIDDefault(t *testing.T) {
	assert.Equal(t, "test-run-default", NewFixedIDGenerator("").Generate())
}

func TestCopyExecutor(t *testing.T) {
	dir := t.TempDir()
	in := WriteModule(t, dir, "in.bc", SampleModule())
	out := filepath.Join(dir, "out.s")

	exec := &CopyExecutor{}
	err := exec.Run(context.Background(), &action.ExternalCommand{
		Tool:    "llc",
		Command: "llc",
		Args:    []string{"-O2", in, "-o", out},
		Output:  out,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"llc"}, exec.Ran)

	m, err := ir.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "sample", m.Name)
}

func TestCopyExecutorFailures(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.bc")
	require.NoError(t, os.WriteFile(in, []byte("x"), 0o644))

	exec := &CopyExecutor{Fail: "cc"}
	err := exec.Run(context.Background(), &action.ExternalCommand{Tool: "cc", Args: []string{in}, Output: filepath.Join(dir, "a.out")})
	assert.EqualError(t, err, "exit status 1")

	err = exec.Run(context.Background(), &action.ExternalCommand{Tool: "llc", Args: []string{"-O2"}, Output: filepath.Join(dir, "a.s")})
	assert.EqualError(t, err, "no input file in arguments")
	assert.Equal(t, []string{"cc", "llc"}, exec.Ran)
}
