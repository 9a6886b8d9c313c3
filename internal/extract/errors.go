package extract

import (
	"errors"
	"fmt"
)

var (
	// ErrPathTraversal marks an entry that would land outside the destination.
	ErrPathTraversal = errors.New("entry escapes destination")
	// ErrUnsupported marks a file that is not an archive Extract understands.
	ErrUnsupported = errors.New("unsupported archive format")
	// ErrExtractDirNotFound is returned when extract_dir matches no entry.
	ErrExtractDirNotFound = errors.New("extract_dir not found in archive")
)

// ExtractError reports a failure unpacking one archive.
type ExtractError struct {
	Archive string
	Entry   string
	Err     error
}

func (e *ExtractError) Error() string {
	if e.Entry != "" {
		return fmt.Sprintf("extract %s: entry %q: %v", e.Archive, e.Entry, e.Err)
	}
	return fmt.Sprintf("extract %s: %v", e.Archive, e.Err)
}

func (e *ExtractError) Unwrap() error {
	return e.Err
}
