package shell

import "fmt"

// Manager installs the activation line into rc files.
type Manager struct {
	home string
}

// NewManager creates a new shell manager
func NewManager(config Config) (*Manager, error) {
	if config.Home == "" {
		return nil, fmt.Errorf("home directory is required")
	}
	return &Manager{home: config.Home}, nil
}

// SetupIntegration adds the activation line for shell unless present.
func (m *Manager) SetupIntegration(shell ShellType, opts SetupOptions) (*SetupResult, error) {
	activationCmd, err := GenerateActivationCommand(shell)
	if err != nil {
		return nil, err
	}

	rcPath, err := RCFilePath(m.home, shell)
	if err != nil {
		return nil, fmt.Errorf("get rc file path: %w", err)
	}

	exists, err := RCFileExists(rcPath)
	if err != nil {
		return nil, fmt.Errorf("check rc file: %w", err)
	}

	hasActivation, err := HasActivationLine(rcPath)
	if err != nil {
		return nil, fmt.Errorf("check activation line: %w", err)
	}

	result := &SetupResult{
		Shell:             shell,
		RCFile:            rcPath,
		AlreadyPresent:    hasActivation,
		ActivationCommand: activationCmd,
	}
	if (hasActivation && !opts.Force) || opts.DryRun {
		return result, nil
	}

	if opts.Backup && exists {
		result.BackupPath, err = BackupRCFile(rcPath)
		if err != nil {
			return nil, fmt.Errorf("backup rc file: %w", err)
		}
	}

	if err := AddActivationLine(rcPath, activationCmd); err != nil {
		return nil, fmt.Errorf("add activation line: %w", err)
	}
	result.Added = true
	return result, nil
}

// DetectAndSetup detects the user's shell and sets up integration
func (m *Manager) DetectAndSetup(opts SetupOptions) (*SetupResult, error) {
	detection := DetectShell()
	if !detection.Shell.IsValid() {
		return nil, &UnsupportedShellError{Shell: detection.ShellPath}
	}
	return m.SetupIntegration(detection.Shell, opts)
}
