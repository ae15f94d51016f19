// Command vorax runs programs on the VORAX resource-conserving machine.
package main

import (
	"fmt"
	"os"

	"github.com/lumsvm/vorax/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
