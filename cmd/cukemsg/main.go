// Command cukemsg emits, stores and checks Cucumber Messages.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/cukemsg/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
