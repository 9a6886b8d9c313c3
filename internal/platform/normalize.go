package platform

import (
	"fmt"
	"strings"
)

// normalizeArch converts kernel and GOARCH spellings to a manifest Arch.
func normalizeArch(arch string) (Arch, error) {
	switch strings.ToLower(strings.TrimSpace(arch)) {
	case "amd64", "x86_64", "x64", "64bit":
		return Arch64, nil
	case "386", "i386", "i686", "x86", "32bit":
		return Arch32, nil
	case "arm64", "aarch64", "arm64be":
		return ArchARM64, nil
	default:
		return "", fmt.Errorf("unsupported architecture: %s", arch)
	}
}

// normalizePlatform converts platform IDs to lowercase for consistency.
func normalizePlatform(platform string) string {
	return strings.ToLower(strings.TrimSpace(platform))
}
