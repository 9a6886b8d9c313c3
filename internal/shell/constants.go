package shell

// Environment variables set by the activation script.
const (
	// EnvZoopActive marks a shell that has sourced the activation script.
	EnvZoopActive = "ZOOP_ACTIVE"
)

// Activation and backup markers
const (
	// ActivationMarker is the string that must appear in activation commands
	ActivationMarker = "zoop activate"

	// BackupSuffix is appended to rc file backups
	BackupSuffix = ".zoop-backup"
)
