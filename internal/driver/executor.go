package driver

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"

	"github.com/roach88/tmlink/internal/action"
)

// Executor runs external commands.
type Executor interface {
	Run(ctx context.Context, cmd *action.ExternalCommand) error
}

// ProcessExecutor runs each command as a child process and waits for it.
type ProcessExecutor struct {
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger
}

func (e *ProcessExecutor) Run(ctx context.Context, cmd *action.ExternalCommand) error {
	c := exec.CommandContext(ctx, cmd.Command, cmd.Args...)
	c.Stdout = e.Stdout
	if c.Stdout == nil {
		c.Stdout = os.Stdout
	}
	c.Stderr = e.Stderr
	if c.Stderr == nil {
		c.Stderr = os.Stderr
	}

	if e.Logger != nil {
		e.Logger.Debug("exec", "tool", cmd.Tool, "command", cmd.Command, "args", cmd.Args)
	}
	if err := c.Run(); err != nil {
		return fmt.Errorf("%s: %w", cmd.Command, err)
	}
	return nil
}
