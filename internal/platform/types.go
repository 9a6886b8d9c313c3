// Package platform detects the host OS and CPU architecture and exposes
// them to Lua configuration.
//
// The architecture is reported in manifest vocabulary (32bit, 64bit, arm64)
// so callers can feed it straight into the manifest overlay resolver. The
// OS kernel architecture is preferred over the process GOARCH: a 32-bit
// build running on a 64-bit kernel still installs 64-bit payloads.
package platform

import (
	"context"
	"fmt"
)

// Arch is a manifest architecture key.
type Arch string

const (
	Arch32    Arch = "32bit"
	Arch64    Arch = "64bit"
	ArchARM64 Arch = "arm64"
)

// Arches lists every supported architecture in manifest order.
var Arches = []Arch{Arch64, Arch32, ArchARM64}

func (a Arch) String() string {
	return string(a)
}

// IsValid reports whether a is one of the supported architectures.
func (a Arch) IsValid() bool {
	switch a {
	case Arch32, Arch64, ArchARM64:
		return true
	default:
		return false
	}
}

// ParseArch accepts exactly the manifest spellings 32bit, 64bit and arm64.
func ParseArch(s string) (Arch, error) {
	a := Arch(s)
	if !a.IsValid() {
		return "", &UnsupportedArchError{Arch: s}
	}
	return a, nil
}

// UnsupportedArchError is returned for architectures outside the closed set.
type UnsupportedArchError struct {
	Arch string
}

func (e *UnsupportedArchError) Error() string {
	return fmt.Sprintf("unsupported architecture %q (supported: 32bit, 64bit, arm64)", e.Arch)
}

// Info contains platform detection information.
type Info struct {
	OS       string // "windows", "linux", "darwin"
	Arch     Arch   // normalized manifest architecture
	ArchRaw  string // kernel or GOARCH value before normalization
	Platform string // OS product or distro ID, lower-cased
	Family   string // OS family as reported by the host
	Version  string // OS version
}

// IsWindows returns true if the platform is Windows.
func (i *Info) IsWindows() bool {
	return i.OS == "windows"
}

// IsLinux returns true if the platform is Linux.
func (i *Info) IsLinux() bool {
	return i.OS == "linux"
}

// IsMacOS returns true if the platform is macOS.
func (i *Info) IsMacOS() bool {
	return i.OS == "darwin"
}

// Is64Bit returns true on x86_64 hosts.
func (i *Info) Is64Bit() bool {
	return i.Arch == Arch64
}

// IsARM64 returns true on arm64 hosts.
func (i *Info) IsARM64() bool {
	return i.Arch == ArchARM64
}

// Detector is the interface for platform detection.
type Detector interface {
	Detect(ctx context.Context) (*Info, error)
}
