package shell

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/shirou/gopsutil/v4/process"
)

// DetectShell detects the user's shell from $SHELL, falling back to the
// parent process.
func DetectShell() *DetectionResult {
	return detect(os.Getenv("SHELL"), parentProcess)
}

func detect(shellEnv string, parent func() (string, string)) *DetectionResult {
	if shellEnv != "" {
		if shellType := parseShellFromPath(shellEnv); shellType.IsValid() {
			return &DetectionResult{
				Shell:      shellType,
				Method:     "$SHELL environment variable",
				ShellPath:  shellEnv,
				Confidence: "high",
			}
		}
	}

	if name, exe := parent(); name != "" {
		if shellType := parseShellFromPath(name); shellType.IsValid() {
			return &DetectionResult{
				Shell:      shellType,
				Method:     "parent process",
				ShellPath:  exe,
				Confidence: "medium",
			}
		}
	}

	return &DetectionResult{
		Shell:      ShellUnknown,
		Method:     "detection failed",
		Confidence: "none",
	}
}

// parseShellFromPath extracts the shell type from a shell binary path or
// process name. Login shells report a leading dash ("-zsh").
func parseShellFromPath(shellPath string) ShellType {
	baseName := strings.ToLower(filepath.Base(shellPath))
	baseName = strings.TrimPrefix(baseName, "-")
	baseName = strings.TrimSuffix(baseName, ".exe")

	switch baseName {
	case "bash":
		return ShellBash
	case "zsh":
		return ShellZsh
	case "fish":
		return ShellFish
	default:
		return ShellUnknown
	}
}

// parentProcess returns the name and executable of the parent process,
// or empty strings when it cannot be inspected.
func parentProcess() (string, string) {
	p, err := process.NewProcess(int32(os.Getppid()))
	if err != nil {
		return "", ""
	}
	name, err := p.Name()
	if err != nil {
		return "", ""
	}
	exe, _ := p.Exe()
	return name, exe
}

// ValidateShell validates that a shell type is supported
func ValidateShell(shell ShellType) error {
	if !shell.IsValid() {
		return &UnsupportedShellError{Shell: shell.String()}
	}
	return nil
}

// ParseShell converts a user-supplied shell name.
func ParseShell(name string) (ShellType, error) {
	s := ShellType(strings.ToLower(strings.TrimSpace(name)))
	if err := ValidateShell(s); err != nil {
		return ShellUnknown, err
	}
	return s, nil
}

// GetSupportedShells returns a list of supported shells
func GetSupportedShells() []ShellType {
	return []ShellType{ShellBash, ShellZsh, ShellFish}
}
