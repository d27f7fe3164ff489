package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tmlink/internal/ir"
	"github.com/roach88/tmlink/internal/testutil"
)

func noEnv(string) (string, bool) { return "", false }

func testOptions(format string) *RootOptions {
	return &RootOptions{Format: format, LookupEnv: noEnv}
}

func execute(cmd *cobra.Command, args ...string) (string, string, error) {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

// decodeData unmarshals the data of an "ok" JSON response into v.
func decodeData(t *testing.T, out string, v any) {
	t.Helper()
	var resp struct {
		Status string          `json:"status"`
		Data   json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Equal(t, "ok", resp.Status, out)
	require.NoError(t, json.Unmarshal(resp.Data, v))
}

var stmParams = []string{"--param", "stmsupport=/opt/stm/support.bc", "--param", "stmlib=/opt/stm/libstm.a"}

func TestBuildDryRunGolden(t *testing.T) {
	cmd := newBuildCommand(&BuildOptions{
		RootOptions: testOptions("text"),
		IDs:         testutil.NewFixedIDGenerator("run-1"),
	})
	args := append([]string{"--dry-run", "--temp-dir", "/work", "-o", "prog"}, stmParams...)
	out, _, err := execute(cmd, append(args, "a.bc", "b.bc")...)
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "build_dry_run", []byte(out))
}

func TestBuildDryRunJSON(t *testing.T) {
	cmd := newBuildCommand(&BuildOptions{
		RootOptions: testOptions("json"),
		IDs:         testutil.NewFixedIDGenerator("run-json"),
	})
	out, _, err := execute(cmd, "--dry-run", "--temp-dir", "/work", "-F", "optimize", "a.bc")
	require.NoError(t, err)

	var report BuildReport
	decodeData(t, out, &report)
	assert.Equal(t, "run-json", report.RunID)
	assert.True(t, report.DryRun)
	assert.Equal(t, []string{
		"llvm_link_together",
		"llvm_link_optimize",
		"llvm_tm_linker",
		"llvm_tm_stm_support",
		"llvm_tm_compiler",
		"llvm_tm_assembler",
	}, report.Plan)
	require.Len(t, report.Actions, 6)
	assert.Equal(t, []string{"/work/06-llvm_tm_assembler/a.out"}, report.Outputs)
}

func TestBuildWritesJournal(t *testing.T) {
	dir := t.TempDir()
	in := testutil.WriteModule(t, dir, "cart.bc", testutil.SampleModule())
	final := filepath.Join(dir, "cart")
	db := filepath.Join(dir, "journal.db")

	exec := &testutil.CopyExecutor{}
	cmd := newBuildCommand(&BuildOptions{
		RootOptions: testOptions("text"),
		Executor:    exec,
		IDs:         testutil.NewFixedIDGenerator("run-ok"),
	})
	out, _, err := execute(cmd, "--temp-dir", filepath.Join(dir, "work"), "-o", final, "--journal", db, in)
	require.NoError(t, err)
	assert.Equal(t, final+"\n", out)
	assert.Len(t, exec.Ran, 4)

	m, err := ir.ReadFile(final)
	require.NoError(t, err)
	assert.Equal(t, ir.OpTMLoad, m.Function("transfer").Blocks[0].Instrs[0].Op)

	list, _, err := execute(NewJournalCommand(testOptions("text")), "--db", db)
	require.NoError(t, err)
	assert.Contains(t, list, "run-ok succeeded pass=tm-instrument inputs="+in)

	show, _, err := execute(NewJournalCommand(testOptions("json")), "--db", db, "--run", "run-ok")
	require.NoError(t, err)
	var run RunReport
	decodeData(t, show, &run)
	assert.Equal(t, "succeeded", run.Status)
	require.Len(t, run.Actions, 5)
	assert.Equal(t, "llvm_tm_linker", run.Actions[1].Node)
	assert.Equal(t, "in-process", run.Actions[1].Kind)
	assert.Equal(t, []string{"(in-process)", "--pass=tm-instrument"}, run.Actions[1].Command[:2])
}

func TestBuildFailures(t *testing.T) {
	dir := t.TempDir()
	in := testutil.WriteModule(t, dir, "cart.bc", testutil.SampleModule())
	junk := filepath.Join(dir, "junk.bc")
	require.NoError(t, os.WriteFile(junk, []byte("not bitcode"), 0o644))

	tests := []struct {
		name     string
		args     []string
		wantExit int
		wantCode string
		wantMsg  string
	}{
		{
			name:     "malformed module",
			args:     []string{junk},
			wantExit: ExitFailure,
			wantCode: ErrCodeLoad,
			wantMsg:  "malformed bitstream",
		},
		{
			name:     "pass not found",
			args:     []string{"--pass", "bogus", in},
			wantExit: ExitFailure,
			wantCode: ErrCodePassNotFound,
			wantMsg:  `tmlink: cannot find pass "bogus"`,
		},
		{
			name:     "unknown input kind",
			args:     []string{"notes.txt"},
			wantExit: ExitCommandError,
			wantCode: ErrCodeGeneric,
			wantMsg:  "unknown input kind",
		},
		{
			name:     "missing graph definition",
			args:     []string{"--graph", filepath.Join(dir, "missing.cue"), in},
			wantExit: ExitCommandError,
			wantCode: ErrCodeGraph,
			wantMsg:  "failed to compile graph",
		},
		{
			name:     "bad param",
			args:     []string{"--param", "novalue", in},
			wantExit: ExitCommandError,
			wantCode: ErrCodeConfig,
			wantMsg:  "want key=value",
		},
		{
			name:     "empty pass",
			args:     []string{"--pass", "", in},
			wantExit: ExitCommandError,
			wantCode: ErrCodeConfig,
			wantMsg:  "pass name must not be empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exec := &testutil.CopyExecutor{}
			cmd := newBuildCommand(&BuildOptions{
				RootOptions: testOptions("text"),
				Executor:    exec,
			})
			args := append([]string{"--temp-dir", t.TempDir()}, tt.args...)
			_, stderr, err := execute(cmd, args...)

			require.Error(t, err)
			assert.Equal(t, tt.wantExit, GetExitCode(err))
			assert.Contains(t, err.Error(), tt.wantCode)
			assert.True(t, IsReported(err))
			assert.Contains(t, stderr, tt.wantMsg)
		})
	}
}

func TestBuildConfigSources(t *testing.T) {
	dir := t.TempDir()
	cfgFile := filepath.Join(dir, "tmlink.yaml")
	require.NoError(t, os.WriteFile(cfgFile, []byte("pass: dce\nflags:\n  optimize: true\n"), 0o644))

	opts := testOptions("text")
	opts.ConfigFile = cfgFile
	opts.LookupEnv = func(key string) (string, bool) {
		if key == "TMLINK_STMLIB" {
			return "/env/libstm.a", true
		}
		return "", false
	}

	cmd := newBuildCommand(&BuildOptions{RootOptions: opts})
	out, _, err := execute(cmd, "--dry-run", "--temp-dir", "/work", "a.bc")
	require.NoError(t, err)
	assert.Contains(t, out, "[llvm_link_optimize] opt -std-link-opts")
	assert.Contains(t, out, "--pass=dce")
	assert.Contains(t, out, "/env/libstm.a")

	// Flags on the command line win over the file.
	cmd = newBuildCommand(&BuildOptions{RootOptions: opts})
	out, _, err = execute(cmd, "--dry-run", "--temp-dir", "/work", "-F", "!optimize", "--pass", "noop", "a.bc")
	require.NoError(t, err)
	assert.NotContains(t, out, "llvm_link_optimize")
	assert.Contains(t, out, "--pass=noop")
}

const customGraph = `
tools: {
	link: {
		inputs: ["llvm-bitcode"]
		output: "llvm-bitcode"
		suffix: "bc"
		cmd:    "llvm-link"
		args: ["$INFILE", {priority: 65536, value: "-o"}, {priority: 65536, value: "$OUTFILE"}]
	}
	llc: {
		inputs: ["llvm-bitcode"]
		output: "assembler"
		suffix: "s"
		cmd:    "llc"
		args: ["$INFILE", {priority: 65536, value: "-o"}, {priority: 65536, value: "$OUTFILE"}]
	}
}
edges: [
	{from: "root", to: "link"},
	{from: "link", to: "llc", when: "!fast"},
]
`

func TestGraphCommandDefault(t *testing.T) {
	out, _, err := execute(NewGraphCommand(testOptions("text")))
	require.NoError(t, err)
	assert.Contains(t, out, "  root empty\n")
	assert.Contains(t, out, "  llvm_tm_assembler [assembler] -> executable\n")
	assert.Contains(t, out, "  llvm_link_together -> llvm_link_optimize when optimize (disabled)\n")
	assert.Contains(t, out, "flags: none\n")
	assert.Contains(t, out, "plan: llvm_link_together -> llvm_tm_linker -> llvm_tm_stm_support -> llvm_tm_compiler -> llvm_tm_assembler")

	out, _, err = execute(NewGraphCommand(testOptions("text")), "-F", "optimize")
	require.NoError(t, err)
	assert.Contains(t, out, "  llvm_link_together -> llvm_link_optimize when optimize\n")
	assert.Contains(t, out, "plan: llvm_link_together -> llvm_link_optimize -> llvm_tm_linker")
}

func TestGraphCommandCustomDefinition(t *testing.T) {
	path := filepath.Join(t.TempDir(), "graph.cue")
	require.NoError(t, os.WriteFile(path, []byte(customGraph), 0o644))

	out, _, err := execute(NewGraphCommand(testOptions("json")), "--graph", path)
	require.NoError(t, err)
	var report GraphReport
	decodeData(t, out, &report)
	assert.Equal(t, []string{"link", "llc"}, report.Plan)
	require.Len(t, report.Edges, 2)
	assert.Equal(t, EdgeReport{From: "link", To: "llc", When: "!fast", Enabled: true}, report.Edges[1])

	out, _, err = execute(NewGraphCommand(testOptions("json")), "--graph", path, "-F", "fast")
	require.NoError(t, err)
	report = GraphReport{}
	decodeData(t, out, &report)
	assert.Equal(t, []string{"link"}, report.Plan)
	assert.Equal(t, []string{"fast"}, report.Flags)
}

func TestGraphCommandBadDefinition(t *testing.T) {
	path := filepath.Join(t.TempDir(), "graph.cue")
	src := strings.Replace(customGraph, `to: "llc"`, `to: "missing"`, 1)
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))

	_, stderr, err := execute(NewGraphCommand(testOptions("text")), "--graph", path)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, stderr, "UNKNOWN_NODE")
	assert.Contains(t, stderr, "invalid graph structure in "+path)
}

func TestPassesCommand(t *testing.T) {
	out, _, err := execute(NewPassesCommand(testOptions("text")))
	require.NoError(t, err)
	for _, name := range []string{"dce", "internalize", "mem2reg", "noop", "target-layout", "tm-instrument", "verify"} {
		assert.Contains(t, out, name)
	}

	out, _, err = execute(NewPassesCommand(testOptions("json")))
	require.NoError(t, err)
	var list []PassReport
	decodeData(t, out, &list)
	require.NotEmpty(t, list)
	for i := 1; i < len(list); i++ {
		assert.Less(t, list[i-1].Name, list[i].Name)
	}
}

func TestTransformCommand(t *testing.T) {
	dir := t.TempDir()
	in := testutil.WriteModule(t, dir, "in.bc", testutil.SampleModule())
	outPath := filepath.Join(dir, "out.bc")

	out, _, err := execute(NewTransformCommand(testOptions("text")), "--pass", "tm-instrument", "-o", outPath, in)
	require.NoError(t, err)

	m, err := ir.ReadFile(outPath)
	require.NoError(t, err)
	assert.Equal(t, ir.OpTMStore, m.Function("transfer").Blocks[0].Instrs[2].Op)
	assert.Equal(t, ir.LinkageInternal, m.Function("helper").Linkage)
	assert.Equal(t, outPath+" "+testutil.ModuleHash(t, m)+"\n", out)
}

func TestTransformCommandStreams(t *testing.T) {
	data, err := ir.Marshal(testutil.SampleModule())
	require.NoError(t, err)

	cmd := NewTransformCommand(testOptions("text"))
	cmd.SetIn(bytes.NewReader(data))
	out, _, err := execute(cmd, "--pass", "noop", "-")
	require.NoError(t, err)

	m, err := ir.Unmarshal([]byte(out))
	require.NoError(t, err)
	assert.Equal(t, "sample", m.Name)
	assert.Equal(t, ir.DefaultTargetLayout, m.TargetLayout)
}

func TestTransformCommandPassNotFound(t *testing.T) {
	dir := t.TempDir()
	in := testutil.WriteModule(t, dir, "in.bc", testutil.SampleModule())
	outPath := filepath.Join(dir, "out.bc")

	_, stderr, err := execute(NewTransformCommand(testOptions("text")), "--pass", "tm-instrumen", "-o", outPath, in)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, stderr, `Error [E006]: transform failed: tmlink: cannot find pass "tm-instrumen"`)
	assert.NoFileExists(t, outPath)
}

func TestDumpCommand(t *testing.T) {
	m := testutil.SampleModule()
	path := testutil.WriteModule(t, t.TempDir(), "sample.bc", m)

	out, _, err := execute(NewDumpCommand(testOptions("text")), path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "; module sample\n"))
	assert.Contains(t, out, "define external @transfer(%amount) #transaction {")
	assert.True(t, strings.HasSuffix(out, "; hash "+testutil.ModuleHash(t, m)+"\n"))

	out, _, err = execute(NewDumpCommand(testOptions("json")), path)
	require.NoError(t, err)
	var report DumpReport
	decodeData(t, out, &report)
	assert.Equal(t, "sample", report.Module)
	assert.Equal(t, testutil.ModuleHash(t, m), report.Hash)
}

func TestDumpCommandMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "junk.bc")
	require.NoError(t, os.WriteFile(path, []byte("not bitcode"), 0o644))

	_, stderr, err := execute(NewDumpCommand(testOptions("text")), path)
	require.Error(t, err)
	assert.ErrorIs(t, err, ir.ErrMalformed)
	assert.Contains(t, stderr, "E004")
}

func TestAssembleCommand(t *testing.T) {
	dir := t.TempDir()
	m := testutil.SampleModule()
	src, err := json.Marshal(m)
	require.NoError(t, err)
	jsonPath := filepath.Join(dir, "sample.json")
	require.NoError(t, os.WriteFile(jsonPath, src, 0o644))
	outPath := filepath.Join(dir, "sample.bc")

	out, _, err := execute(NewAssembleCommand(testOptions("text")), "-o", outPath, jsonPath)
	require.NoError(t, err)
	assert.Equal(t, outPath+" "+testutil.ModuleHash(t, m)+"\n", out)

	got, err := ir.ReadFile(outPath)
	require.NoError(t, err)
	assert.Equal(t, testutil.ModuleHash(t, m), testutil.ModuleHash(t, got))
}

func TestAssembleCommandRejects(t *testing.T) {
	tests := []struct {
		name     string
		src      string
		wantCode string
	}{
		{"unknown field", `{"name":"m","bogus":1}`, ErrCodeLoad},
		{"trailing data", `{"name":"m"} {"name":"n"}`, ErrCodeLoad},
		{"duplicate symbol", `{"name":"m","globals":[{"name":"g","linkage":"external"},{"name":"g","linkage":"external"}]}`, ErrCodeVerify},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			jsonPath := filepath.Join(dir, "m.json")
			require.NoError(t, os.WriteFile(jsonPath, []byte(tt.src), 0o644))
			outPath := filepath.Join(dir, "m.bc")

			_, _, err := execute(NewAssembleCommand(testOptions("text")), "-o", outPath, jsonPath)
			require.Error(t, err)
			assert.Equal(t, ExitFailure, GetExitCode(err))
			assert.Contains(t, err.Error(), tt.wantCode)
			assert.NoFileExists(t, outPath)
		})
	}
}

func TestJournalCommandErrors(t *testing.T) {
	dir := t.TempDir()

	_, _, err := execute(NewJournalCommand(testOptions("text")), "--db", filepath.Join(dir, "missing.db"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), ErrCodeNotFound)
	assert.NoFileExists(t, filepath.Join(dir, "missing.db"))

	db := filepath.Join(dir, "journal.db")
	cmd := newBuildCommand(&BuildOptions{RootOptions: testOptions("text")})
	_, _, err = execute(cmd, "--dry-run", "--temp-dir", "/work", "--journal", db, "a.bc")
	require.NoError(t, err)

	out, _, err := execute(NewJournalCommand(testOptions("text")), "--db", db, "--run", "no-such-run")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Empty(t, out)
}
