//go:build windows

package persist

import (
	"fmt"
	"os"
	"os/exec"
)

// linkPath uses a junction for directories and a hard link for files, the
// two link kinds available without elevation.
func linkPath(target, name string) error {
	fi, err := os.Stat(target)
	if err != nil {
		return err
	}
	if !fi.IsDir() {
		return os.Link(target, name)
	}
	out, err := exec.Command("cmd", "/c", "mklink", "/J", name, target).CombinedOutput()
	if err != nil {
		return fmt.Errorf("mklink: %w: %s", err, out)
	}
	return nil
}
