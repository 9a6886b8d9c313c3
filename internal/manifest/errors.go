package manifest

import (
	"fmt"
	"strings"

	"github.com/ZebulonRouseFrantzich/zoop/internal/platform"
)

// ParseError reports a manifest that could not be read, decoded or
// validated. It is fatal for the affected app only.
type ParseError struct {
	Name   string // app name, when known
	Path   string // source file, when loaded from disk
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	var b strings.Builder
	b.WriteString("manifest")
	if e.Name != "" {
		fmt.Fprintf(&b, " %q", e.Name)
	}
	if e.Path != "" {
		fmt.Fprintf(&b, " (%s)", e.Path)
	}
	b.WriteString(": ")
	b.WriteString(e.Reason)
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ArchOverlayError reports that the manifest cannot serve the requested
// architecture.
type ArchOverlayError struct {
	Name      string
	Arch      platform.Arch
	Available []platform.Arch
}

func (e *ArchOverlayError) Error() string {
	if len(e.Available) == 0 {
		return fmt.Sprintf("manifest %q: architecture %q is not supported", e.Name, e.Arch)
	}
	names := make([]string, len(e.Available))
	for i, a := range e.Available {
		names[i] = a.String()
	}
	return fmt.Sprintf("manifest %q: no %s build (available: %s)", e.Name, e.Arch, strings.Join(names, ", "))
}
