// Package manifest loads app manifests and resolves their per-architecture
// overrides into an effective, flat description of what to install.
package manifest

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/ZebulonRouseFrantzich/zoop/internal/platform"
)

// Overridable holds every field an architecture block may override. It is
// embedded in Manifest for the generic values and used on its own for each
// architecture entry. A nil pointer means "absent"; a non-nil pointer to an
// empty value is present and wins.
type Overridable struct {
	URL         *StringOrArray `json:"url,omitempty"`
	Hash        *StringOrArray `json:"hash,omitempty"`
	Signature   *StringOrArray `json:"signature,omitempty"`
	Bin         *BinList       `json:"bin,omitempty"`
	Shortcuts   *[]Shortcut    `json:"shortcuts,omitempty"`
	EnvSet      *EnvSet        `json:"env_set,omitempty"`
	EnvAddPath  *StringOrArray `json:"env_add_path,omitempty"`
	ExtractDir  *StringOrArray `json:"extract_dir,omitempty"`
	ExtractTo   *StringOrArray `json:"extract_to,omitempty"`
	Installer   *Installer     `json:"installer,omitempty"`
	Uninstaller *Installer     `json:"uninstaller,omitempty"`
	PreInstall  *StringOrArray `json:"pre_install,omitempty"`
	PostInstall *StringOrArray `json:"post_install,omitempty"`
}

// Architecture holds the optional per-architecture overrides.
type Architecture struct {
	X64   *Overridable `json:"64bit,omitempty"`
	X86   *Overridable `json:"32bit,omitempty"`
	ARM64 *Overridable `json:"arm64,omitempty"`
}

// For returns the override block for arch, or nil.
func (a *Architecture) For(arch platform.Arch) *Overridable {
	if a == nil {
		return nil
	}
	switch arch {
	case platform.Arch64:
		return a.X64
	case platform.Arch32:
		return a.X86
	case platform.ArchARM64:
		return a.ARM64
	default:
		return nil
	}
}

// Available lists the architectures that have an override block.
func (a *Architecture) Available() []platform.Arch {
	var out []platform.Arch
	for _, arch := range platform.Arches {
		if a.For(arch) != nil {
			out = append(out, arch)
		}
	}
	return out
}

// Manifest is a decoded app manifest. It is not modified after Parse.
type Manifest struct {
	Version     string                   `json:"version"`
	Description string                   `json:"description,omitempty"`
	Homepage    string                   `json:"homepage,omitempty"`
	License     *License                 `json:"license,omitempty"`
	Depends     StringOrArray            `json:"depends,omitempty"`
	Suggest     map[string]StringOrArray `json:"suggest,omitempty"`
	Notes       StringOrArray            `json:"notes,omitempty"`
	Persist     PersistList              `json:"persist,omitempty"`
	PSModule    *PSModule                `json:"psmodule,omitempty"`
	InnoSetup   bool                     `json:"innosetup,omitempty"`
	Cookie      map[string]string        `json:"cookie,omitempty"`
	Checkver    json.RawMessage          `json:"checkver,omitempty"`
	Autoupdate  json.RawMessage          `json:"autoupdate,omitempty"`

	Overridable
	Architecture *Architecture `json:"architecture,omitempty"`

	name   string
	bucket string
	path   string
	raw    []byte
}

// Source describes where manifest bytes came from. Name and Bucket live
// outside the document itself.
type Source struct {
	Name   string
	Bucket string
	Path   string
}

// Load reads a manifest file. The app name is the file name without its
// .json extension.
func Load(path string, bucket string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ParseError{Path: path, Reason: "read failed", Err: err}
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return Parse(data, Source{Name: name, Bucket: bucket, Path: path})
}

// Parse validates data against the manifest schema, decodes it and checks
// that a name and version are present.
func Parse(data []byte, src Source) (*Manifest, error) {
	if err := validateSchema(data); err != nil {
		return nil, &ParseError{Name: src.Name, Path: src.Path, Reason: "schema validation failed", Err: err}
	}

	m := &Manifest{}
	if err := json.Unmarshal(data, m); err != nil {
		return nil, &ParseError{Name: src.Name, Path: src.Path, Reason: "decode failed", Err: err}
	}
	m.name = strings.TrimSpace(src.Name)
	m.bucket = strings.TrimSpace(src.Bucket)
	m.path = src.Path
	m.raw = append([]byte(nil), data...)

	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// Name returns the app name and whether one is set.
func (m *Manifest) Name() (string, bool) {
	return m.name, m.name != ""
}

// Bucket returns the provenance bucket and whether one is set.
func (m *Manifest) Bucket() (string, bool) {
	return m.bucket, m.bucket != ""
}

// Path returns the file the manifest was loaded from, or "".
func (m *Manifest) Path() string {
	return m.path
}

// Raw returns the original document bytes.
func (m *Manifest) Raw() []byte {
	return m.raw
}

// Validate reports a ParseError when name or version is missing.
func (m *Manifest) Validate() error {
	if _, ok := m.Name(); !ok {
		return &ParseError{Path: m.path, Reason: "app name is empty"}
	}
	if strings.TrimSpace(m.Version) == "" {
		return &ParseError{Name: m.name, Path: m.path, Reason: "version is empty"}
	}
	return nil
}

// IsNightly reports whether the manifest tracks an unversioned build.
func (m *Manifest) IsNightly() bool {
	return IsNightly(m.Version)
}

// IsNightly reports whether version is the "nightly" marker.
func IsNightly(version string) bool {
	return strings.EqualFold(strings.TrimSpace(version), "nightly")
}
