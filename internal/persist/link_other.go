//go:build !windows

package persist

import "os"

func linkPath(target, name string) error {
	return os.Symlink(target, name)
}
