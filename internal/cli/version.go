package cli

import (
	"fmt"
	"runtime"

	"github.com/mvidal/wfmon/internal/output"
)

// VersionCmd prints version information.
type VersionCmd struct{}

// Run executes the version command
func (c *VersionCmd) Run(globals *Globals) error {
	if globals.OutputFormat() == "ndjson" {
		return output.NewNDJSONWriter(globals.Stdout).WriteStatus("ok", fmt.Sprintf("wfmon %s %s/%s", Version, runtime.GOOS, runtime.GOARCH))
	}
	fmt.Fprintf(globals.Stdout, "wfmon %s (%s/%s)\n", Version, runtime.GOOS, runtime.GOARCH)
	return nil
}
