// stagehand coordinates a type checker, a lint runner, and a browser test
// runner so incremental edits flow through check, lint, and test staging
// without redundant work or interleaved output.
package main

import (
	"os"

	"github.com/dana/stagehand/cmd/stagehand/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
