package manifest

import (
	"github.com/ZebulonRouseFrantzich/zoop/internal/platform"
)

// Resolve returns the value of one overridable field for arch. The
// architecture block wins whenever it sets the field, even to an empty
// value; otherwise the generic value is used. ok is false when neither
// sets it.
func Resolve[T any](m *Manifest, arch platform.Arch, field func(*Overridable) *T) (value T, ok bool) {
	if o := m.Architecture.For(arch); o != nil {
		if v := field(o); v != nil {
			return *v, true
		}
	}
	if v := field(&m.Overridable); v != nil {
		return *v, true
	}
	return value, false
}

// Effective is a manifest flattened for one architecture.
type Effective struct {
	Name    string
	Bucket  string
	Version string
	Arch    platform.Arch

	URLs        []string
	Hashes      []string
	Signatures  []string
	Bin         []BinEntry
	Shortcuts   []Shortcut
	EnvSet      []EnvVar
	EnvAddPath  []string
	ExtractDir  []string
	ExtractTo   []string
	Installer   *Installer
	Uninstaller *Installer
	PreInstall  []string
	PostInstall []string

	Depends   []string
	Suggest   map[string]StringOrArray
	Notes     []string
	Persist   []PersistEntry
	PSModule  *PSModule
	InnoSetup bool
	Cookie    map[string]string

	Manifest *Manifest
}

// Effective resolves every overridable field for arch.
//
// When the manifest declares architecture blocks, none matches arch, and
// there is no generic url, the app cannot be installed on arch and an
// ArchOverlayError is returned rather than silently picking another build.
func (m *Manifest) Effective(arch platform.Arch) (*Effective, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	if !arch.IsValid() {
		return nil, &ArchOverlayError{Name: m.name, Arch: arch, Available: m.Architecture.Available()}
	}
	if m.Architecture != nil && m.Architecture.For(arch) == nil && m.URL == nil {
		if avail := m.Architecture.Available(); len(avail) > 0 {
			return nil, &ArchOverlayError{Name: m.name, Arch: arch, Available: avail}
		}
	}

	e := &Effective{
		Name:      m.name,
		Bucket:    m.bucket,
		Version:   m.Version,
		Arch:      arch,
		Depends:   m.Depends.Strings(),
		Suggest:   m.Suggest,
		Notes:     m.Notes.Strings(),
		Persist:   m.Persist,
		PSModule:  m.PSModule,
		InnoSetup: m.InnoSetup,
		Cookie:    m.Cookie,
		Manifest:  m,
	}

	e.URLs = resolveStrings(m, arch, func(o *Overridable) *StringOrArray { return o.URL })
	e.Hashes = resolveStrings(m, arch, func(o *Overridable) *StringOrArray { return o.Hash })
	e.Signatures = resolveStrings(m, arch, func(o *Overridable) *StringOrArray { return o.Signature })
	e.EnvAddPath = resolveStrings(m, arch, func(o *Overridable) *StringOrArray { return o.EnvAddPath })
	e.ExtractDir = resolveStrings(m, arch, func(o *Overridable) *StringOrArray { return o.ExtractDir })
	e.ExtractTo = resolveStrings(m, arch, func(o *Overridable) *StringOrArray { return o.ExtractTo })
	e.PreInstall = resolveStrings(m, arch, func(o *Overridable) *StringOrArray { return o.PreInstall })
	e.PostInstall = resolveStrings(m, arch, func(o *Overridable) *StringOrArray { return o.PostInstall })

	if bin, ok := Resolve(m, arch, func(o *Overridable) *BinList { return o.Bin }); ok {
		e.Bin = bin
	}
	if sc, ok := Resolve(m, arch, func(o *Overridable) *[]Shortcut { return o.Shortcuts }); ok {
		e.Shortcuts = sc
	}
	if env, ok := Resolve(m, arch, func(o *Overridable) *EnvSet { return o.EnvSet }); ok {
		e.EnvSet = env
	}
	if inst, ok := Resolve(m, arch, func(o *Overridable) *Installer { return o.Installer }); ok {
		e.Installer = &inst
	}
	if uninst, ok := Resolve(m, arch, func(o *Overridable) *Installer { return o.Uninstaller }); ok {
		e.Uninstaller = &uninst
	}

	return e, nil
}

func resolveStrings(m *Manifest, arch platform.Arch, field func(*Overridable) *StringOrArray) []string {
	v, _ := Resolve(m, arch, field)
	return v.Strings()
}

// HashFor returns the declared hash for the i-th URL, or "".
func (e *Effective) HashFor(i int) string {
	if i < len(e.Hashes) {
		return e.Hashes[i]
	}
	return ""
}

// SignatureFor returns the signature URL for the i-th URL, or "".
func (e *Effective) SignatureFor(i int) string {
	if i < len(e.Signatures) {
		return e.Signatures[i]
	}
	return ""
}

// ExtractDirFor returns extract_dir for the i-th URL, or "".
func (e *Effective) ExtractDirFor(i int) string {
	if i < len(e.ExtractDir) {
		return e.ExtractDir[i]
	}
	return ""
}

// ExtractToFor returns extract_to for the i-th URL, or "".
func (e *Effective) ExtractToFor(i int) string {
	if i < len(e.ExtractTo) {
		return e.ExtractTo[i]
	}
	return ""
}
