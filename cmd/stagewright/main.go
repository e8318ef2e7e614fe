// Command stagewright runs end-to-end test suites in staged, sharded,
// parallel waves.
package main

import (
	"os"

	"github.com/stagewright/stagewright/internal/buildinfo"
	"github.com/stagewright/stagewright/internal/cli"
)

// Build-time metadata injected via ldflags, mirrored into internal/buildinfo
// so both `stagewright version` and package consumers see the same values.
var (
	version   = "dev"
	commit    = "unknown"
	date      = "unknown"
	goVersion = "unknown"
)

func main() {
	buildinfo.Version = version
	buildinfo.Commit = commit
	buildinfo.Date = date
	buildinfo.GoVersion = goVersion

	os.Exit(cli.Execute())
}
