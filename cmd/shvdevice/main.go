// Command shvdevice connects to a Silicon Heaven broker and serves this
// device's node tree until interrupted.
package main

import (
	"fmt"
	"os"

	"github.com/silicon-heaven/shvdevice-go/cmd/shvdevice/commands"
)

// Build-time variables injected via ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.Version = version
	commands.Commit = commit
	commands.Date = date

	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
