// Package options defines the install option record that parameterizes
// every pipeline stage.
package options

import (
	"fmt"
	"strings"

	"github.com/ZebulonRouseFrantzich/zoop/internal/platform"
)

// Kind identifies one install option.
type Kind int

const (
	KindNoUseDownloadCache Kind = iota + 1
	KindNoAutoDownloadDepends
	KindSkipDownloadHashCheck
	KindArch
	KindUpdateHpAndBuckets
	KindOnlyDownloadNoInstall
	KindForceDownloadNoInstallOverrideCache
	KindCheckCurrentVersionIsLatest
	KindGlobal
	KindForceInstallOverride
)

var kindNames = map[Kind]string{
	KindNoUseDownloadCache:                  "no-cache",
	KindNoAutoDownloadDepends:               "no-depends",
	KindSkipDownloadHashCheck:               "skip-hash-check",
	KindArch:                                "arch",
	KindUpdateHpAndBuckets:                  "update",
	KindOnlyDownloadNoInstall:               "download-only",
	KindForceDownloadNoInstallOverrideCache: "force-download",
	KindCheckCurrentVersionIsLatest:         "check-latest",
	KindGlobal:                              "global",
	KindForceInstallOverride:                "force",
}

// String returns the option's CLI-style name.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Option is one requested option value. Only KindArch carries a payload.
type Option struct {
	Kind Kind
	Arch string
}

// Flag returns a boolean option.
func Flag(k Kind) Option {
	return Option{Kind: k}
}

// Arch returns an architecture option.
func Arch(arch string) Option {
	return Option{Kind: KindArch, Arch: arch}
}

// InstallOptions is the structured option record. The zero value means
// "defaults": cache on, dependencies on, hash checks on, host architecture.
type InstallOptions struct {
	NoUseDownloadCache                  bool          `json:"no_use_download_cache,omitempty"`
	NoAutoDownloadDepends               bool          `json:"no_auto_download_depends,omitempty"`
	SkipDownloadHashCheck               bool          `json:"skip_download_hash_check,omitempty"`
	Arch                                platform.Arch `json:"arch,omitempty"`
	UpdateHpAndBuckets                  bool          `json:"update_hp_and_buckets,omitempty"`
	OnlyDownloadNoInstall               bool          `json:"only_download_no_install,omitempty"`
	ForceDownloadNoInstallOverrideCache bool          `json:"force_download_no_install_override_cache,omitempty"`
	CheckCurrentVersionIsLatest         bool          `json:"check_current_version_is_latest,omitempty"`
	Global                              bool          `json:"global,omitempty"`
	ForceInstallOverride                bool          `json:"force_install_override,omitempty"`
}

// Error reports an invalid or conflicting option set.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("invalid option %s: %s", e.Kind, e.Message)
}

// Build folds a list of options into a record. Repeated identical options
// collapse; two different architectures are rejected.
func Build(opts ...Option) (InstallOptions, error) {
	var o InstallOptions
	for _, opt := range opts {
		switch opt.Kind {
		case KindNoUseDownloadCache:
			o.NoUseDownloadCache = true
		case KindNoAutoDownloadDepends:
			o.NoAutoDownloadDepends = true
		case KindSkipDownloadHashCheck:
			o.SkipDownloadHashCheck = true
		case KindArch:
			arch, err := platform.ParseArch(strings.TrimSpace(opt.Arch))
			if err != nil {
				return InstallOptions{}, &Error{Kind: KindArch, Message: err.Error()}
			}
			if o.Arch != "" && o.Arch != arch {
				return InstallOptions{}, &Error{
					Kind:    KindArch,
					Message: fmt.Sprintf("conflicting values %q and %q", o.Arch, arch),
				}
			}
			o.Arch = arch
		case KindUpdateHpAndBuckets:
			o.UpdateHpAndBuckets = true
		case KindOnlyDownloadNoInstall:
			o.OnlyDownloadNoInstall = true
		case KindForceDownloadNoInstallOverrideCache:
			o.ForceDownloadNoInstallOverrideCache = true
		case KindCheckCurrentVersionIsLatest:
			o.CheckCurrentVersionIsLatest = true
		case KindGlobal:
			o.Global = true
		case KindForceInstallOverride:
			o.ForceInstallOverride = true
		default:
			return InstallOptions{}, &Error{Kind: opt.Kind, Message: "unknown option"}
		}
	}
	return o, nil
}

// ForDependency derives the options for a nested dependency install.
// Once-per-invocation actions are cleared; everything else is inherited.
func (o InstallOptions) ForDependency() InstallOptions {
	d := o
	d.UpdateHpAndBuckets = false
	d.CheckCurrentVersionIsLatest = false
	d.ForceInstallOverride = false
	return d
}

// UseCache reports whether a cached artifact may be reused.
func (o InstallOptions) UseCache() bool {
	return !o.NoUseDownloadCache && !o.ForceDownloadNoInstallOverrideCache
}

// DownloadOnly reports whether the pipeline stops after verification.
func (o InstallOptions) DownloadOnly() bool {
	return o.OnlyDownloadNoInstall || o.ForceDownloadNoInstallOverrideCache
}

// ResolveArch returns the requested architecture, or host when unset.
func (o InstallOptions) ResolveArch(host platform.Arch) platform.Arch {
	if o.Arch != "" {
		return o.Arch
	}
	return host
}

// Kinds lists the enabled options in declaration order.
func (o InstallOptions) Kinds() []Kind {
	var out []Kind
	add := func(set bool, k Kind) {
		if set {
			out = append(out, k)
		}
	}
	add(o.NoUseDownloadCache, KindNoUseDownloadCache)
	add(o.NoAutoDownloadDepends, KindNoAutoDownloadDepends)
	add(o.SkipDownloadHashCheck, KindSkipDownloadHashCheck)
	add(o.Arch != "", KindArch)
	add(o.UpdateHpAndBuckets, KindUpdateHpAndBuckets)
	add(o.OnlyDownloadNoInstall, KindOnlyDownloadNoInstall)
	add(o.ForceDownloadNoInstallOverrideCache, KindForceDownloadNoInstallOverrideCache)
	add(o.CheckCurrentVersionIsLatest, KindCheckCurrentVersionIsLatest)
	add(o.Global, KindGlobal)
	add(o.ForceInstallOverride, KindForceInstallOverride)
	return out
}

// Scope names the install scope for records and messages.
func (o InstallOptions) Scope() string {
	if o.Global {
		return "global"
	}
	return "user"
}
