package shell

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// RCFilePath returns the path to the shell's rc file under home.
func RCFilePath(home string, shell ShellType) (string, error) {
	if err := ValidateShell(shell); err != nil {
		return "", err
	}

	switch shell {
	case ShellBash:
		return filepath.Join(home, ".bashrc"), nil
	case ShellZsh:
		return filepath.Join(home, ".zshrc"), nil
	case ShellFish:
		return filepath.Join(home, ".config", "fish", "config.fish"), nil
	default:
		return "", &UnsupportedShellError{Shell: shell.String()}
	}
}

// RCFileExists checks if the rc file exists. Symlinked rc files are
// reported as errors since the rename in AddActivationLine would replace
// the link.
func RCFileExists(rcPath string) (bool, error) {
	info, err := os.Lstat(rcPath)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, &RCFileError{Path: rcPath, Op: "stat file", Err: err}
	}
	if info.Mode()&os.ModeSymlink != 0 {
		return false, &RCFileError{Path: rcPath, Err: errors.New("refusing to modify a symlink")}
	}
	if !info.Mode().IsRegular() {
		return false, &RCFileError{Path: rcPath, Err: errors.New("not a regular file")}
	}
	return true, nil
}

// HasActivationLine checks if the rc file already activates zoop.
// Commented-out lines do not count.
func HasActivationLine(rcPath string) (bool, error) {
	file, err := os.Open(rcPath)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, &RCFileError{Path: rcPath, Op: "open file", Err: err}
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(line, "#") {
			continue
		}
		if strings.Contains(line, ActivationMarker) {
			return true, nil
		}
	}
	if err := scanner.Err(); err != nil {
		return false, &RCFileError{Path: rcPath, Op: "read file", Err: err}
	}
	return false, nil
}

// BackupRCFile copies the rc file next to itself with BackupSuffix.
func BackupRCFile(rcPath string) (string, error) {
	content, err := os.ReadFile(rcPath)
	if err != nil {
		return "", &RCFileError{Path: rcPath, Op: "read file for backup", Err: err}
	}

	backupPath := rcPath + BackupSuffix
	if err := os.WriteFile(backupPath, content, 0644); err != nil {
		return "", &RCFileError{Path: backupPath, Op: "write backup file", Err: err}
	}
	return backupPath, nil
}

// validActivationCommand accepts only the lines GenerateActivationCommand
// produces.
func validActivationCommand(cmd string) bool {
	for _, s := range GetSupportedShells() {
		if want, _ := GenerateActivationCommand(s); cmd == want {
			return true
		}
	}
	return false
}

// AddActivationLine appends the activation section to the rc file,
// creating it and its directory when missing.
func AddActivationLine(rcPath string, activationCommand string) error {
	if !validActivationCommand(activationCommand) {
		return &RCFileError{Path: rcPath, Err: fmt.Errorf("invalid activation command format: %q", activationCommand)}
	}

	exists, err := RCFileExists(rcPath)
	if err != nil {
		return err
	}
	var existing []byte
	if exists {
		existing, err = os.ReadFile(rcPath)
		if err != nil {
			return &RCFileError{Path: rcPath, Op: "read existing file", Err: err}
		}
	}

	dir := filepath.Dir(rcPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return &RCFileError{Path: rcPath, Op: "create parent directory", Err: err}
	}
	tmpFile, err := os.CreateTemp(dir, ".zoop-tmp-*")
	if err != nil {
		return &RCFileError{Path: rcPath, Op: "create temporary file", Err: err}
	}
	tmpPath := tmpFile.Name()
	defer os.Remove(tmpPath)

	var b strings.Builder
	b.Write(existing)
	if len(existing) > 0 && !strings.HasSuffix(string(existing), "\n") {
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "\n# zoop\n%s\n", activationCommand)

	if _, err := tmpFile.WriteString(b.String()); err != nil {
		tmpFile.Close()
		return &RCFileError{Path: rcPath, Op: "write activation line", Err: err}
	}
	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		return &RCFileError{Path: rcPath, Op: "sync file", Err: err}
	}
	if err := tmpFile.Close(); err != nil {
		return &RCFileError{Path: rcPath, Op: "close temporary file", Err: err}
	}
	if exists {
		if info, err := os.Stat(rcPath); err == nil {
			_ = os.Chmod(tmpPath, info.Mode().Perm())
		}
	} else {
		_ = os.Chmod(tmpPath, 0644)
	}

	if err := os.Rename(tmpPath, rcPath); err != nil {
		return &RCFileError{Path: rcPath, Op: "rename temp file", Err: err}
	}
	return nil
}
