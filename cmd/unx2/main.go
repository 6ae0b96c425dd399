// Command unx2 runs a Turing machine that doubles a unary integer.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/unx2/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
