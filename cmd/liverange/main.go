// Command liverange computes buffer live ranges and peak memory for
// scheduled dataflow programs written in CUE.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/liverange/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "liverange: %v\n", err)
		os.Exit(cli.GetExitCode(err))
	}
}
