// Package appref parses the app reference grammars used on the command line
// and in manifest depends lists:
//
//	app            name-only, searched across buckets
//	bucket/app     bucket-scoped
//	app@version    specific version
package appref

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	namePattern    = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._+-]*$`)
	versionPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._+-]*$`)
)

// Ref identifies an app, optionally pinned to a bucket or a version.
type Ref struct {
	Bucket  string
	App     string
	Version string
}

func (r Ref) String() string {
	s := r.App
	if r.Bucket != "" {
		s = r.Bucket + "/" + s
	}
	if r.Version != "" {
		s += "@" + r.Version
	}
	return s
}

// DependencyFormatError reports a malformed depends entry.
type DependencyFormatError struct {
	Spec   string
	Reason string
}

func (e *DependencyFormatError) Error() string {
	return fmt.Sprintf("invalid dependency %q: %s", e.Spec, e.Reason)
}

// SelectorFormatError reports a malformed app@version selector.
type SelectorFormatError struct {
	Spec   string
	Reason string
}

func (e *SelectorFormatError) Error() string {
	return fmt.Sprintf("invalid app selector %q: %s", e.Spec, e.Reason)
}

// ParseDependency parses "app" or "bucket/app". Exactly one slash is
// allowed and neither side may be empty.
func ParseDependency(spec string) (Ref, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return Ref{}, &DependencyFormatError{Spec: spec, Reason: "empty"}
	}
	if !strings.Contains(spec, "/") {
		if !namePattern.MatchString(spec) {
			return Ref{}, &DependencyFormatError{Spec: spec, Reason: "app name contains invalid characters"}
		}
		return Ref{App: spec}, nil
	}

	parts := strings.Split(spec, "/")
	if len(parts) != 2 {
		return Ref{}, &DependencyFormatError{Spec: spec, Reason: "expected bucket/app with exactly one '/'"}
	}
	bucket, app := parts[0], parts[1]
	if bucket == "" || app == "" {
		return Ref{}, &DependencyFormatError{Spec: spec, Reason: "bucket and app must both be non-empty"}
	}
	if !namePattern.MatchString(bucket) || !namePattern.MatchString(app) {
		return Ref{}, &DependencyFormatError{Spec: spec, Reason: "bucket or app name contains invalid characters"}
	}
	return Ref{Bucket: bucket, App: app}, nil
}

// ParseSelector parses "app" or "app@version". Exactly one '@' is allowed
// and neither side may be empty.
func ParseSelector(spec string) (Ref, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return Ref{}, &SelectorFormatError{Spec: spec, Reason: "empty"}
	}
	if !strings.Contains(spec, "@") {
		if !namePattern.MatchString(spec) {
			return Ref{}, &SelectorFormatError{Spec: spec, Reason: "app name contains invalid characters"}
		}
		return Ref{App: spec}, nil
	}

	parts := strings.Split(spec, "@")
	if len(parts) != 2 {
		return Ref{}, &SelectorFormatError{Spec: spec, Reason: "expected app@version with exactly one '@'"}
	}
	app, version := parts[0], parts[1]
	if app == "" || version == "" {
		return Ref{}, &SelectorFormatError{Spec: spec, Reason: "app and version must both be non-empty"}
	}
	if !namePattern.MatchString(app) {
		return Ref{}, &SelectorFormatError{Spec: spec, Reason: "app name contains invalid characters"}
	}
	if !versionPattern.MatchString(version) {
		return Ref{}, &SelectorFormatError{Spec: spec, Reason: "version contains invalid characters"}
	}
	return Ref{App: app, Version: version}, nil
}

// Parse accepts any command-line app reference: app, bucket/app or
// app@version. A bucket-scoped reference cannot also pin a version.
func Parse(spec string) (Ref, error) {
	spec = strings.TrimSpace(spec)
	hasSlash := strings.Contains(spec, "/")
	hasAt := strings.Contains(spec, "@")

	switch {
	case hasSlash && hasAt:
		return Ref{}, &SelectorFormatError{Spec: spec, Reason: "bucket/app@version is not supported"}
	case hasSlash:
		return ParseDependency(spec)
	default:
		return ParseSelector(spec)
	}
}
