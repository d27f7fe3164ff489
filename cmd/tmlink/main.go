// Command tmlink links LLVM bitcode for transactional memory programs.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/roach88/tmlink/internal/cli"
)

func main() {
	os.Exit(run())
}

func run() int {
	if err := cli.NewRootCommand().ExecuteContext(context.Background()); err != nil {
		if !cli.IsReported(err) {
			fmt.Fprintln(os.Stderr, "tmlink:", err)
		}
		return cli.GetExitCode(err)
	}
	return cli.ExitSuccess
}
