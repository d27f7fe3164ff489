package driver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/roach88/tmlink/internal/action"
	"github.com/roach88/tmlink/internal/graph"
	"github.com/roach88/tmlink/internal/store"
)

var (
	// ErrNoInputs is returned when a stage that cannot run empty has no inputs.
	ErrNoInputs = errors.New("no inputs")

	// ErrKindMismatch is returned when a stage does not accept a file's kind.
	ErrKindMismatch = errors.New("input kind not accepted")

	// ErrUnknownKind is returned for an input whose extension maps to no kind.
	ErrUnknownKind = errors.New("unknown input kind")
)

// DefaultKinds maps file extensions to input kinds.
var DefaultKinds = map[string]string{
	".bc": "llvm-bitcode",
	".ll": "llvm-assembler",
	".s":  "assembler",
	".o":  "object-code",
}

// Journal records runs. *store.Store implements it.
type Journal interface {
	BeginRun(ctx context.Context, run store.Run) error
	RecordAction(ctx context.Context, rec store.ActionRecord) error
	FinishRun(ctx context.Context, runID, status, errMsg string) error
}

// Driver builds inputs through a populated graph.
type Driver struct {
	Graph    *graph.Graph
	Executor Executor

	// Journal is optional.
	Journal Journal
	Logger  *slog.Logger
	IDs     IDGenerator

	Flags graph.Flags

	// TempDir holds one subdirectory per stage. Empty uses a new
	// directory under os.TempDir named after the run.
	TempDir string

	// Output, when set, names the final output. It requires the last
	// stage to produce a single file.
	Output string

	// Kinds overrides DefaultKinds.
	Kinds map[string]string

	// Pass is recorded in the journal only.
	Pass string

	// DryRun generates every action but runs none. Stages after the first
	// see the outputs the earlier actions would have produced.
	DryRun bool
}

// Result describes a finished build.
type Result struct {
	RunID   string
	Plan    []string
	Actions []action.Action
	Outputs []string
}

type file struct {
	path string
	kind string
}

// Build runs every planned stage over inputs.
func (d *Driver) Build(ctx context.Context, inputs []string) (*Result, error) {
	log := d.logger()
	ids := d.IDs
	if ids == nil {
		ids = UUIDv7Generator{}
	}
	res := &Result{RunID: ids.Generate()}
	log = log.With("run", res.RunID)

	if d.Journal != nil {
		run := store.Run{ID: res.RunID, Inputs: inputs, Flags: d.Flags.Set(), Pass: d.Pass}
		if err := d.Journal.BeginRun(ctx, run); err != nil {
			return nil, fmt.Errorf("journal: %w", err)
		}
	}

	err := d.build(ctx, log, inputs, res)
	d.finish(ctx, log, res.RunID, err)
	if err != nil {
		return res, err
	}
	log.Info("build finished", "actions", len(res.Actions), "outputs", res.Outputs)
	return res, nil
}

func (d *Driver) build(ctx context.Context, log *slog.Logger, inputs []string, res *Result) error {
	plan, err := d.Graph.Plan(d.Flags)
	if err != nil {
		return fmt.Errorf("plan: %w", err)
	}
	res.Plan = plan
	log.Debug("plan", "stages", plan, "flags", d.Flags.String())

	files, err := d.classify(inputs)
	if err != nil {
		return err
	}

	tempDir := d.TempDir
	if tempDir == "" {
		tempDir = filepath.Join(os.TempDir(), "tmlink-"+res.RunID)
	}

	clock := NewClock()
	for i, name := range plan {
		node, ok := d.Graph.Lookup(name)
		if !ok {
			return fmt.Errorf("stage %s: not in graph", name)
		}
		tool, ok := node.(action.Tool)
		if !ok {
			return fmt.Errorf("stage %s: node cannot generate actions", name)
		}

		stageDir := filepath.Join(tempDir, fmt.Sprintf("%02d-%s", i+1, name))
		actions, err := d.generate(tool, files, stageDir)
		if err != nil {
			return fmt.Errorf("stage %s: %w", name, err)
		}

		if !d.DryRun {
			if err := os.MkdirAll(stageDir, 0o755); err != nil {
				return fmt.Errorf("stage %s: %w", name, err)
			}
		}

		next := make([]file, 0, len(actions))
		for _, a := range actions {
			res.Actions = append(res.Actions, a)
			if err := d.execute(ctx, log, res.RunID, clock.Next(), a); err != nil {
				return fmt.Errorf("stage %s: %w", name, err)
			}
			next = append(next, file{path: a.Result(), kind: tool.Descriptor().OutputKind})
		}
		files = next
	}

	res.Outputs = make([]string, len(files))
	for i, f := range files {
		res.Outputs[i] = f.path
	}
	log.Debug("stages done", "last_seq", clock.Current())
	return nil
}

// generate plans every action of one stage without running any.
func (d *Driver) generate(tool action.Tool, files []file, stageDir string) ([]action.Action, error) {
	desc := tool.Descriptor()
	for _, f := range files {
		if !desc.Accepts(f.kind) {
			return nil, fmt.Errorf("%w: %s is %s", ErrKindMismatch, f.path, f.kind)
		}
	}

	hasNext := d.Graph.HasNext(desc.Name, d.Flags)
	base := action.Request{HasDownstream: hasNext, OutputDir: stageDir, FinalOutput: d.Output}

	var reqs []action.Request
	switch {
	case len(files) == 0:
		if !desc.WorksOnEmpty {
			return nil, ErrNoInputs
		}
		reqs = append(reqs, base)
	case desc.Join:
		req := base
		req.Inputs = paths(files)
		reqs = append(reqs, req)
	default:
		names := action.UniqueNames(paths(files))
		for i, f := range files {
			req := base
			req.Inputs = []string{f.path}
			req.Name = names[i]
			reqs = append(reqs, req)
		}
	}

	if !hasNext && d.Output != "" && len(reqs) > 1 {
		return nil, fmt.Errorf("cannot write %d outputs to %s", len(reqs), d.Output)
	}

	actions := make([]action.Action, 0, len(reqs))
	for _, req := range reqs {
		a, err := tool.Generate(req)
		if err != nil {
			return nil, err
		}
		actions = append(actions, a)
	}
	return actions, nil
}

func (d *Driver) execute(ctx context.Context, log *slog.Logger, runID string, seq int64, a action.Action) error {
	rec := store.ActionRecord{
		RunID:   runID,
		Seq:     seq,
		Node:    a.Stage(),
		Command: commandLine(a),
		Output:  a.Result(),
		Status:  store.ActionOK,
	}

	var err error
	switch a := a.(type) {
	case *action.ExternalCommand:
		rec.Kind = store.KindExternal
		if !d.DryRun {
			if d.Executor == nil {
				err = errors.New("no executor configured")
			} else {
				err = d.Executor.Run(ctx, a)
			}
		}
	case *action.InProcessWork:
		rec.Kind = store.KindInProcess
		if !d.DryRun {
			err = a.Run(ctx)
		}
	default:
		err = fmt.Errorf("unsupported action %T", a)
	}

	switch {
	case err != nil:
		rec.Status = store.ActionFailed
		rec.Error = err.Error()
		log.Error("action failed", "seq", seq, "stage", a.Stage(), "error", err)
	case d.DryRun:
		rec.Status = store.ActionPlanned
	default:
		log.Info("action done", "seq", seq, "stage", a.Stage(), "output", a.Result())
	}

	if d.Journal != nil {
		if jerr := d.Journal.RecordAction(ctx, rec); jerr != nil && err == nil {
			err = fmt.Errorf("journal: %w", jerr)
		}
	}
	return err
}

func (d *Driver) finish(ctx context.Context, log *slog.Logger, runID string, buildErr error) {
	if d.Journal == nil {
		return
	}
	status, msg := store.StatusSucceeded, ""
	if buildErr != nil {
		status, msg = store.StatusFailed, buildErr.Error()
	}
	// The run is closed even when ctx was cancelled.
	if err := d.Journal.FinishRun(context.WithoutCancel(ctx), runID, status, msg); err != nil {
		log.Warn("journal finish failed", "error", err)
	}
}

func (d *Driver) classify(inputs []string) ([]file, error) {
	kinds := d.Kinds
	if kinds == nil {
		kinds = DefaultKinds
	}
	files := make([]file, 0, len(inputs))
	for _, in := range inputs {
		kind, ok := kinds[filepath.Ext(in)]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownKind, in)
		}
		files = append(files, file{path: in, kind: kind})
	}
	return files, nil
}

func (d *Driver) logger() *slog.Logger {
	if d.Logger == nil {
		return slog.Default()
	}
	return d.Logger
}

func paths(files []file) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.path
	}
	return out
}
