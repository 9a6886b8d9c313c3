//go:build !windows

package state

import (
	"os"
	"path/filepath"
)

// link creates a relative symlink so the app directory stays relocatable.
func link(target, name string) error {
	return os.Symlink(filepath.Base(target), name)
}

func replaceLink(tmp, current string) error {
	return os.Rename(tmp, current)
}
