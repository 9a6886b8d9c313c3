package shell

import "testing"

func TestDetect(t *testing.T) {
	noParent := func() (string, string) { return "", "" }

	tests := []struct {
		name           string
		shellEnv       string
		parent         func() (string, string)
		wantShell      ShellType
		wantMethod     string
		wantConfidence string
	}{
		{
			name:           "bash from SHELL",
			shellEnv:       "/bin/bash",
			parent:         noParent,
			wantShell:      ShellBash,
			wantMethod:     "$SHELL environment variable",
			wantConfidence: "high",
		},
		{
			name:           "fish from SHELL",
			shellEnv:       "/usr/local/bin/fish",
			parent:         noParent,
			wantShell:      ShellFish,
			wantMethod:     "$SHELL environment variable",
			wantConfidence: "high",
		},
		{
			name:           "login zsh from parent",
			shellEnv:       "/bin/ksh",
			parent:         func() (string, string) { return "-zsh", "/usr/bin/zsh" },
			wantShell:      ShellZsh,
			wantMethod:     "parent process",
			wantConfidence: "medium",
		},
		{
			name:           "empty SHELL and unknown parent",
			parent:         func() (string, string) { return "sshd", "/usr/sbin/sshd" },
			wantShell:      ShellUnknown,
			wantMethod:     "detection failed",
			wantConfidence: "none",
		},
		{
			name:           "nothing known",
			parent:         noParent,
			wantShell:      ShellUnknown,
			wantMethod:     "detection failed",
			wantConfidence: "none",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := detect(tt.shellEnv, tt.parent)
			if got.Shell != tt.wantShell || got.Method != tt.wantMethod || got.Confidence != tt.wantConfidence {
				t.Errorf("detect() = %+v", got)
			}
		})
	}
}

func TestParseShellFromPath(t *testing.T) {
	tests := []struct {
		path string
		want ShellType
	}{
		{"/bin/bash", ShellBash},
		{"/usr/bin/ZSH", ShellZsh},
		{"fish", ShellFish},
		{"-bash", ShellBash},
		{"bash.exe", ShellBash},
		{"/bin/sh", ShellUnknown},
		{"", ShellUnknown},
	}
	for _, tt := range tests {
		if got := parseShellFromPath(tt.path); got != tt.want {
			t.Errorf("parseShellFromPath(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestParseShell(t *testing.T) {
	if got, err := ParseShell(" Bash "); err != nil || got != ShellBash {
		t.Errorf("ParseShell = %v, %v", got, err)
	}
	if _, err := ParseShell("powershell"); err == nil {
		t.Error("expected UnsupportedShellError")
	} else if _, ok := err.(*UnsupportedShellError); !ok {
		t.Errorf("error type = %T", err)
	}
}
