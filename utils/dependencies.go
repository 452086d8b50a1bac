package utils

import (
	"fmt"
	"os/exec"
	"runtime"
)

// Tool names for the external binaries this toolkit orchestrates.
const (
	ToolAriaMPS = "aria_mps"
	ToolVRS     = "vrs"
	ToolADB     = "adb"
)

// ValidateDependencies checks that the named external tools are available in
// PATH. Each command validates only the tools it actually invokes.
func ValidateDependencies(tools ...string) error {
	for _, tool := range tools {
		if _, err := exec.LookPath(tool); err != nil {
			return fmt.Errorf("%s not found in PATH. %s", tool, installInstructions(tool))
		}
	}
	return nil
}

// installInstructions returns per-tool installation instructions
func installInstructions(tool string) string {
	switch tool {
	case ToolAriaMPS:
		return "Install the Aria CLI tools with: pip install projectaria_client_sdk"
	case ToolVRS:
		if runtime.GOOS == "darwin" {
			return "Install with: brew install vrs"
		}
		return "Build from https://github.com/facebookresearch/vrs and add to PATH"
	case ToolADB:
		switch runtime.GOOS {
		case "darwin":
			return "Install with: brew install android-platform-tools"
		case "linux":
			return "Install with: apt-get install adb (Ubuntu/Debian)"
		default:
			return "Download the Android platform tools and add adb to PATH"
		}
	default:
		return "Make sure the tool is installed and on your PATH"
	}
}
