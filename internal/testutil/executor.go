package testutil

import (
	"context"
	"errors"
	"os"

	"github.com/roach88/tmlink/internal/action"
)

// CopyExecutor stands in for the external tools: it copies the first
// argument that names an existing file to the command's output. Bitcode
// passes through every stage unchanged, so a build's final file is the
// module the transform stage wrote. Implements driver.Executor.
type CopyExecutor struct {
	// Ran lists the tool of every command, in order.
	Ran []string

	// Fail names a tool whose commands fail.
	Fail string
}

func (e *CopyExecutor) Run(_ context.Context, cmd *action.ExternalCommand) error {
	e.Ran = append(e.Ran, cmd.Tool)
	if cmd.Tool == e.Fail {
		return errors.New("exit status 1")
	}
	for _, a := range cmd.Args {
		data, err := os.ReadFile(a)
		if err != nil {
			continue
		}
		return os.WriteFile(cmd.Output, data, 0o644)
	}
	return errors.New("no input file in arguments")
}
