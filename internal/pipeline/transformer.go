package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/roach88/tmlink/internal/ir"
	"github.com/roach88/tmlink/internal/passes"
)

// Transformer runs the module transformation pipeline. The zero value is
// usable: it keeps the module's layout, preserves "main" and uses the
// process's standard streams.
type Transformer struct {
	// TargetLayout overrides the module's data layout when non-empty.
	TargetLayout string

	// EntryPoints are the symbols internalize leaves external.
	EntryPoints []string

	Logger *slog.Logger
	Stdin  io.Reader
	Stdout io.Writer
}

// Sequence returns the pass manager for passName, or a CodePassNotFound
// error when the name is not registered.
func (t *Transformer) Sequence(passName string) (*passes.Manager, error) {
	named, ok := passes.FindByName(passName)
	if !ok {
		return nil, &Error{Code: CodePassNotFound, Pass: passName}
	}

	pm := passes.NewManager(t.logger())
	pm.Add(passes.NewTargetLayout(t.TargetLayout))
	pm.Add(passes.NewInternalize(t.EntryPoints...))
	pm.Add(&passes.Mem2Reg{})
	pm.Add(named)
	pm.Add(passes.Verifier{})
	return pm, nil
}

// Transform loads inputPath, runs the pass sequence with passName in the
// selectable slot and writes the result to outputPath. ir.StdStream reads
// or writes the standard streams.
func (t *Transformer) Transform(ctx context.Context, inputPath, outputPath, passName string) error {
	log := t.logger().With("input", inputPath, "pass", passName)

	m, err := t.load(inputPath)
	if err != nil {
		log.Error("load failed", "error", err)
		return &Error{Code: CodeLoad, Input: inputPath, Pass: passName, Err: err}
	}

	pm, err := t.Sequence(passName)
	if err != nil {
		log.Error("pass lookup failed")
		return err
	}

	if err := pm.Run(ctx, m); err != nil {
		code := CodePass
		if passes.IsVerifyError(err) {
			code = CodeVerify
		}
		return &Error{Code: code, Input: inputPath, Pass: passName, Err: err}
	}

	if err := t.store(outputPath, m); err != nil {
		log.Error("write failed", "output", outputPath, "error", err)
		return &Error{Code: CodeWrite, Input: inputPath, Pass: passName, Err: fmt.Errorf("write %s: %w", outputPath, err)}
	}

	attrs := []any{"output", outputPath, "module", m.Name}
	if hash, err := ir.ModuleHash(m); err != nil {
		attrs = append(attrs, "hash_error", err)
	} else {
		attrs = append(attrs, "hash", hash)
	}
	log.Info("module transformed", attrs...)
	return nil
}

func (t *Transformer) load(path string) (*ir.Module, error) {
	if path == ir.StdStream {
		r := t.Stdin
		if r == nil {
			r = os.Stdin
		}
		return ir.Decode(r)
	}
	return ir.ReadFile(path)
}

func (t *Transformer) store(path string, m *ir.Module) error {
	if path == ir.StdStream {
		w := t.Stdout
		if w == nil {
			w = os.Stdout
		}
		return writeStream(w, m)
	}
	return writeAtomic(path, m)
}

func (t *Transformer) logger() *slog.Logger {
	if t.Logger == nil {
		return slog.Default()
	}
	return t.Logger
}
