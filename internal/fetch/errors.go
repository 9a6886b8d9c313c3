package fetch

import (
	"errors"
	"fmt"
)

// ErrNoURL is returned when a manifest declares nothing to download.
var ErrNoURL = errors.New("manifest declares no url")

// DownloadError reports a transport failure for one URL.
type DownloadError struct {
	URL     string
	Timeout bool
	Err     error
}

func (e *DownloadError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("download %s: timed out: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("download %s: %v", e.URL, e.Err)
}

func (e *DownloadError) Unwrap() error {
	return e.Err
}

// HashMismatchError reports an artifact whose digest differs from the
// manifest. Quarantine is where the artifact was moved, if anywhere.
type HashMismatchError struct {
	Path       string
	Algorithm  string
	Expected   string
	Actual     string
	Quarantine string
}

func (e *HashMismatchError) Error() string {
	return fmt.Sprintf("hash mismatch for %s (%s):\nactual:   %s\nexpected: %s",
		e.Path, e.Algorithm, e.Actual, e.Expected)
}

// MissingHashError is returned when a non-nightly manifest omits a hash and
// the hash check was not explicitly skipped.
type MissingHashError struct {
	URL string
}

func (e *MissingHashError) Error() string {
	return fmt.Sprintf("no hash declared for %s", e.URL)
}

// SignatureError reports a failed detached signature check.
type SignatureError struct {
	Path string
	Err  error
}

func (e *SignatureError) Error() string {
	return fmt.Sprintf("verify signature for %s: %v", e.Path, e.Err)
}

func (e *SignatureError) Unwrap() error {
	return e.Err
}
