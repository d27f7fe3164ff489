package driver

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tmlink/internal/action"
	"github.com/roach88/tmlink/internal/compiler"
	"github.com/roach88/tmlink/internal/graph"
	"github.com/roach88/tmlink/internal/ir"
	"github.com/roach88/tmlink/internal/pipeline"
	"github.com/roach88/tmlink/internal/store"
	"github.com/roach88/tmlink/internal/testutil"
)

type countingTransformer struct{ calls int }

func (c *countingTransformer) Transform(context.Context, string, string, string) error {
	c.calls++
	return nil
}

func defaultGraph(t *testing.T, tr action.Transformer) *graph.Graph {
	t.Helper()
	spec, err := compiler.DefaultGraph()
	require.NoError(t, err)
	g, err := compiler.Populate(spec, compiler.Deps{
		Transformer: tr,
		Params: map[string]string{
			"pass":       "tm-instrument",
			"stmsupport": "/opt/stm/support.bc",
			"stmlib":     "/opt/stm/libstm.a",
		},
	})
	require.NoError(t, err)
	return g
}

func TestDryRunGolden(t *testing.T) {
	exec := &testutil.CopyExecutor{}
	d := &Driver{
		Graph:    defaultGraph(t, &pipeline.Transformer{}),
		Executor: exec,
		IDs:      testutil.NewFixedIDGenerator("run-1"),
		TempDir:  "/work",
		Output:   "prog",
		DryRun:   true,
	}

	res, err := d.Build(context.Background(), []string{"a.bc", "b.bc"})
	require.NoError(t, err)
	assert.Equal(t, "run-1", res.RunID)
	assert.Empty(t, exec.Ran)
	assert.Equal(t, []string{"prog"}, res.Outputs)

	var buf bytes.Buffer
	require.NoError(t, FormatActions(&buf, res.Actions))

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "dry_run_default", buf.Bytes())
}

func TestBuildLogsLastSequence(t *testing.T) {
	var logs bytes.Buffer
	d := &Driver{
		Graph:   defaultGraph(t, &pipeline.Transformer{}),
		Logger:  slog.New(slog.NewJSONHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug})),
		IDs:     testutil.NewFixedIDGenerator("run-seq"),
		TempDir: "/work",
		DryRun:  true,
	}

	res, err := d.Build(context.Background(), []string{"a.bc"})
	require.NoError(t, err)
	require.Len(t, res.Actions, 5)
	assert.Contains(t, logs.String(), `"msg":"stages done","run":"run-seq","last_seq":5`)
}

func TestDryRunOptimizeFlag(t *testing.T) {
	d := &Driver{
		Graph:   defaultGraph(t, &pipeline.Transformer{}),
		IDs:     testutil.NewFixedIDGenerator(""),
		Flags:   graph.Flags{"optimize": true},
		TempDir: "/work",
		DryRun:  true,
	}

	res, err := d.Build(context.Background(), []string{"a.bc"})
	require.NoError(t, err)
	require.Len(t, res.Actions, 6)
	assert.Equal(t, "llvm_link_optimize", res.Actions[1].Stage())
	assert.Equal(t, []string{"opt", "-std-link-opts", "/work/01-llvm_link_together/a.bc", "-o", "/work/02-llvm_link_optimize/a.bc"},
		commandLine(res.Actions[1]))
	assert.Equal(t, "/work/06-llvm_tm_assembler/a.out", res.Outputs[0])
}

func TestBuildRunsEveryStage(t *testing.T) {
	dir := t.TempDir()
	in := testutil.WriteModule(t, dir, "cart.bc", testutil.SampleModule())
	out := filepath.Join(dir, "cart")

	journal, err := store.Open(filepath.Join(dir, "journal.db"))
	require.NoError(t, err)
	defer journal.Close()

	exec := &testutil.CopyExecutor{}
	d := &Driver{
		Graph:    defaultGraph(t, &pipeline.Transformer{}),
		Executor: exec,
		Journal:  journal,
		IDs:      testutil.NewFixedIDGenerator("run-ok"),
		TempDir:  filepath.Join(dir, "work"),
		Output:   out,
		Pass:     "tm-instrument",
	}

	res, err := d.Build(context.Background(), []string{in})
	require.NoError(t, err)
	assert.Equal(t, []string{out}, res.Outputs)
	assert.Equal(t, []string{"llvm_link_together", "llvm_tm_stm_support", "llvm_tm_compiler", "llvm_tm_assembler"}, exec.Ran)

	// The copy executor passes the module through untouched, so the final
	// file is the transformed module.
	m, err := ir.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, ir.OpTMLoad, m.Function("transfer").Blocks[0].Instrs[0].Op)

	run, actions, err := journal.ReadRun(context.Background(), "run-ok")
	require.NoError(t, err)
	assert.Equal(t, store.StatusSucceeded, run.Status)
	assert.Equal(t, []string{in}, run.Inputs)
	assert.Equal(t, "tm-instrument", run.Pass)
	require.Len(t, actions, 5)
	assert.Equal(t, store.KindInProcess, actions[1].Kind)
	assert.Equal(t, "llvm_tm_linker", actions[1].Node)
	for i, a := range actions {
		assert.Equal(t, int64(i+1), a.Seq)
		assert.Equal(t, store.ActionOK, a.Status)
	}
}

func TestBuildStopsAtFailedAction(t *testing.T) {
	dir := t.TempDir()
	in := testutil.WriteModule(t, dir, "cart.bc", testutil.SampleModule())

	journal, err := store.Open(filepath.Join(dir, "journal.db"))
	require.NoError(t, err)
	defer journal.Close()

	exec := &testutil.CopyExecutor{Fail: "llvm_tm_stm_support"}
	d := &Driver{
		Graph:    defaultGraph(t, &pipeline.Transformer{}),
		Executor: exec,
		Journal:  journal,
		IDs:      testutil.NewFixedIDGenerator("run-bad"),
		TempDir:  filepath.Join(dir, "work"),
	}

	_, err = d.Build(context.Background(), []string{in})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stage llvm_tm_stm_support")
	assert.Equal(t, []string{"llvm_link_together", "llvm_tm_stm_support"}, exec.Ran)

	run, actions, err := journal.ReadRun(context.Background(), "run-bad")
	require.NoError(t, err)
	assert.Equal(t, store.StatusFailed, run.Status)
	require.Len(t, actions, 3)
	assert.Equal(t, store.ActionFailed, actions[2].Status)
	assert.Equal(t, "exit status 1", actions[2].Error)
}

func TestBuildPassNotFoundIsFatal(t *testing.T) {
	dir := t.TempDir()
	in := testutil.WriteModule(t, dir, "cart.bc", testutil.SampleModule())

	spec, err := compiler.DefaultGraph()
	require.NoError(t, err)
	g, err := compiler.Populate(spec, compiler.Deps{
		Transformer: &pipeline.Transformer{},
		Params:      map[string]string{"pass": "my-pass", "stmsupport": "s.bc", "stmlib": "l.a"},
	})
	require.NoError(t, err)

	exec := &testutil.CopyExecutor{}
	d := &Driver{Graph: g, Executor: exec, IDs: testutil.NewFixedIDGenerator(""), TempDir: filepath.Join(dir, "work")}

	_, err = d.Build(context.Background(), []string{in})
	require.Error(t, err)
	assert.True(t, pipeline.IsPassNotFound(err))
	assert.Equal(t, []string{"llvm_link_together"}, exec.Ran)

	_, statErr := os.Stat(filepath.Join(dir, "work", "02-llvm_tm_linker", "cart.bc"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestBuildRejectsBeforeRunning(t *testing.T) {
	// A transformation declared as a join still takes exactly one module.
	tr := &countingTransformer{}
	joined := graph.New()
	require.NoError(t, joined.InsertNode(&action.TransformTool{
		Desc:        graph.Descriptor{Name: "tm", InputKinds: []string{"llvm-bitcode"}, OutputKind: "llvm-bitcode", Join: true},
		Suffix:      "bc",
		Pass:        "noop",
		Transformer: tr,
	}))
	require.NoError(t, joined.InsertEdge(graph.RootName, graph.Edge{Target: "tm"}))

	tests := []struct {
		name   string
		g      *graph.Graph
		inputs []string
		is     error
	}{
		{"kind mismatch", defaultGraph(t, &pipeline.Transformer{}), []string{"x.s"}, ErrKindMismatch},
		{"unknown kind", defaultGraph(t, &pipeline.Transformer{}), []string{"notes.txt"}, ErrUnknownKind},
		{"no inputs", defaultGraph(t, &pipeline.Transformer{}), nil, ErrNoInputs},
		{"arity", joined, []string{"a.bc", "b.bc"}, action.ErrArityMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exec := &testutil.CopyExecutor{}
			d := &Driver{Graph: tt.g, Executor: exec, IDs: testutil.NewFixedIDGenerator(""), TempDir: t.TempDir()}

			_, err := d.Build(context.Background(), tt.inputs)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.is)
			assert.Empty(t, exec.Ran)
		})
	}
	assert.Zero(t, tr.calls)
}

func TestBuildSeveralOutputsToOneFile(t *testing.T) {
	g := graph.New()
	require.NoError(t, g.InsertNode(&action.CommandTool{
		Desc:    graph.Descriptor{Name: "llc", InputKinds: []string{"llvm-bitcode"}, OutputKind: "assembler"},
		Command: "llc",
		Suffix:  "s",
	}))
	require.NoError(t, g.InsertEdge(graph.RootName, graph.Edge{Target: "llc"}))

	d := &Driver{Graph: g, IDs: testutil.NewFixedIDGenerator(""), Output: "out.s", DryRun: true, TempDir: "/w"}
	_, err := d.Build(context.Background(), []string{"a.bc", "b.bc"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot write 2 outputs to out.s")

	d.Output = ""
	res, err := d.Build(context.Background(), []string{"a.bc", "b.bc"})
	require.NoError(t, err)
	assert.Equal(t, []string{"/w/01-llc/a.s", "/w/01-llc/b.s"}, res.Outputs)
}

func TestBuildSameBaseNameKeepsFilesApart(t *testing.T) {
	g := graph.New()
	require.NoError(t, g.InsertNode(&action.CommandTool{
		Desc:    graph.Descriptor{Name: "opt", InputKinds: []string{"llvm-bitcode"}, OutputKind: "llvm-bitcode"},
		Command: "opt",
		Args:    []action.Arg{{Value: "$INFILE"}, {Priority: action.PriorityOutput, Value: "$OUTFILE"}},
		Suffix:  "bc",
	}))
	require.NoError(t, g.InsertNode(&action.CommandTool{
		Desc:    graph.Descriptor{Name: "llc", InputKinds: []string{"llvm-bitcode"}, OutputKind: "assembler"},
		Command: "llc",
		Args:    []action.Arg{{Value: "$INFILE"}, {Priority: action.PriorityOutput, Value: "$OUTFILE"}},
		Suffix:  "s",
	}))
	require.NoError(t, g.InsertEdge(graph.RootName, graph.Edge{Target: "opt"}))
	require.NoError(t, g.InsertEdge("opt", graph.Edge{Target: "llc"}))

	d := &Driver{Graph: g, IDs: testutil.NewFixedIDGenerator(""), DryRun: true, TempDir: "/w"}
	res, err := d.Build(context.Background(), []string{"a/x.bc", "b/x.bc"})
	require.NoError(t, err)

	require.Len(t, res.Actions, 4)
	assert.Equal(t, []string{"opt", "a/x.bc", "/w/01-opt/x.bc"}, commandLine(res.Actions[0]))
	assert.Equal(t, []string{"opt", "b/x.bc", "/w/01-opt/x-2.bc"}, commandLine(res.Actions[1]))
	assert.Equal(t, []string{"llc", "/w/01-opt/x-2.bc", "/w/02-llc/x-2.s"}, commandLine(res.Actions[3]))
	assert.Equal(t, []string{"/w/02-llc/x.s", "/w/02-llc/x-2.s"}, res.Outputs)
}

func TestBuildNoPathFromRoot(t *testing.T) {
	d := &Driver{Graph: graph.New(), IDs: testutil.NewFixedIDGenerator("")}
	_, err := d.Build(context.Background(), []string{"a.bc"})
	require.Error(t, err)
	assert.True(t, graph.IsNoPath(err))
}

func TestClock(t *testing.T) {
	c := NewClock()
	assert.Equal(t, int64(0), c.Current())
	assert.Equal(t, int64(1), c.Next())
	assert.Equal(t, int64(2), c.Next())
	assert.Equal(t, int64(2), c.Current())
}

func TestUUIDv7Generator(t *testing.T) {
	var g UUIDv7Generator
	a, b := g.Generate(), g.Generate()
	assert.Len(t, a, 36)
	assert.NotEqual(t, a, b)
}
