package shared

import (
	"fmt"
	"os/exec"
	"runtime"
)

// browserCommands maps GOOS to the argv prefix that hands a URL to the
// default browser.
var browserCommands = map[string][]string{
	"darwin":  {"open"},
	"linux":   {"xdg-open"},
	"windows": {"cmd", "/c", "start"},
}

var currentOS = func() string { return runtime.GOOS }

// OpenBrowser opens url in the system's default browser. The launched
// process is not waited on.
func OpenBrowser(url string) error {
	argv, ok := browserCommands[currentOS()]
	if !ok {
		return fmt.Errorf("unsupported platform: %s", currentOS())
	}

	cmd := exec.Command(argv[0], append(argv[1:], url)...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to open browser: %w", err)
	}

	return nil
}
