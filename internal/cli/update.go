package cli

import (
	"encoding/json"
	"fmt"

	"github.com/mvidal/wfmon/internal/output"
)

// UpdateCmd shows how to upgrade wfmon
type UpdateCmd struct{}

// UpdateOutput represents the NDJSON output for update instructions
type UpdateOutput struct {
	Type          string `json:"type"`
	SchemaVersion int    `json:"schemaVersion"`
	Version       string `json:"current_version"`
	GoInstall     string `json:"go_install"`
	ReleasesURL   string `json:"releases_url"`
}

const (
	goInstallCmd = "go install github.com/mvidal/wfmon/cmd/wfmon@latest"
	releasesURL  = "https://github.com/mvidal/wfmon/releases"
)

// Run executes the update command
func (c *UpdateCmd) Run(globals *Globals) error {
	if globals.OutputFormat() == "ndjson" {
		return c.outputNDJSON(globals)
	}
	return c.outputText(globals)
}

func (c *UpdateCmd) outputNDJSON(globals *Globals) error {
	out := UpdateOutput{
		Type:          "update",
		SchemaVersion: output.SchemaVersion,
		Version:       Version,
		GoInstall:     goInstallCmd,
		ReleasesURL:   releasesURL,
	}

	encoder := json.NewEncoder(globals.Stdout)
	return encoder.Encode(out)
}

func (c *UpdateCmd) outputText(globals *Globals) error {
	fmt.Fprintln(globals.Stdout, "wfmon update instructions")
	fmt.Fprintln(globals.Stdout)
	fmt.Fprintf(globals.Stdout, "Current version: %s\n", Version)
	fmt.Fprintln(globals.Stdout)
	fmt.Fprintln(globals.Stdout, "To upgrade via Go:")
	fmt.Fprintf(globals.Stdout, "  %s\n", goInstallCmd)
	fmt.Fprintln(globals.Stdout)
	fmt.Fprintln(globals.Stdout, "For release notes, see:")
	fmt.Fprintf(globals.Stdout, "  %s\n", releasesURL)

	return nil
}
