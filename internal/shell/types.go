package shell

import "fmt"

// ShellType names a shell zoop can print an activation script for.
type ShellType string

const (
	ShellBash    ShellType = "bash"
	ShellZsh     ShellType = "zsh"
	ShellFish    ShellType = "fish"
	ShellUnknown ShellType = "unknown"
)

func (s ShellType) String() string {
	return string(s)
}

// IsValid reports whether activate supports s.
func (s ShellType) IsValid() bool {
	switch s {
	case ShellBash, ShellZsh, ShellFish:
		return true
	}
	return false
}

// Config locates the rc files `zoop activate --setup` edits.
type Config struct {
	Home string
}

// SetupOptions are the --setup flags of `zoop activate`.
type SetupOptions struct {
	Force  bool // append even when an activation line exists
	Backup bool
	DryRun bool
}

// SetupResult reports what --setup did to the rc file.
type SetupResult struct {
	Shell             ShellType
	RCFile            string
	ActivationCommand string
	Added             bool
	AlreadyPresent    bool
	BackupPath        string // empty unless a backup was written
}

// DetectionResult says which shell runs zoop and how that was decided.
// Confidence is "high" for $SHELL, "medium" for the parent process and
// "none" when neither helped.
type DetectionResult struct {
	Shell      ShellType
	ShellPath  string
	Method     string
	Confidence string
}

// UnsupportedShellError is returned for shells without an activation script.
type UnsupportedShellError struct {
	Shell string
}

func (e *UnsupportedShellError) Error() string {
	return fmt.Sprintf("unsupported shell: %s (supported: bash, zsh, fish)", e.Shell)
}

// RCFileError wraps a failure to read or update an rc file.
type RCFileError struct {
	Path string
	Op   string
	Err  error
}

func (e *RCFileError) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("rc file %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("rc file %s: %s: %v", e.Path, e.Op, e.Err)
}

func (e *RCFileError) Unwrap() error {
	return e.Err
}
