package passes

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/tmlink/internal/ir"
)

// PassError reports which pass failed.
type PassError struct {
	Pass string
	Err  error
}

func (e *PassError) Error() string {
	return fmt.Sprintf("pass %s: %v", e.Pass, e.Err)
}

func (e *PassError) Unwrap() error {
	return e.Err
}

// Manager runs an ordered list of passes over one module.
//
// Passes run strictly in the order they were added, each one seeing the
// module as left by the previous one. Cancellation is checked between
// passes only; a running pass is never interrupted.
type Manager struct {
	passes []Pass
	logger *slog.Logger
}

// NewManager creates an empty pass manager. A nil logger uses slog.Default().
func NewManager(logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{logger: logger}
}

// Add appends p to the sequence.
func (pm *Manager) Add(p Pass) {
	pm.passes = append(pm.passes, p)
}

// Names returns the pass names in execution order.
func (pm *Manager) Names() []string {
	names := make([]string, len(pm.passes))
	for i, p := range pm.passes {
		names[i] = p.Name()
	}
	return names
}

// Run executes every pass in order. The first failure stops the sequence
// and is returned as a *PassError.
func (pm *Manager) Run(ctx context.Context, m *ir.Module) error {
	for i, p := range pm.passes {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("stopped before pass %s: %w", p.Name(), err)
		}

		pm.logger.Debug("running pass",
			"index", i,
			"pass", p.Name(),
			"module", m.Name,
		)

		if err := p.Run(m); err != nil {
			pm.logger.Error("pass failed",
				"pass", p.Name(),
				"module", m.Name,
				"error", err,
			)
			return &PassError{Pass: p.Name(), Err: err}
		}
	}
	return nil
}

// IsVerifyError returns true if err carries a verification failure.
// Uses errors.As to handle wrapped errors.
func IsVerifyError(err error) bool {
	var ve *VerifyError
	return errors.As(err, &ve)
}
