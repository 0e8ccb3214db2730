package main

import (
	"fmt"
	"os"

	"github.com/markand/irccd-sub002/internal/cli"
)

// Version information - set at build time via ldflags
var (
	version   = "dev"
	buildDate = "unknown"
	gitCommit = "unknown"
)

func main() {
	cmd := cli.NewRootCommand(cli.BuildInfo{
		Version:   version,
		BuildDate: buildDate,
		GitCommit: gitCommit,
	})
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "irccd: %v\n", err)
		os.Exit(1)
	}
}
