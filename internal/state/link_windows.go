//go:build windows

package state

import (
	"fmt"
	"os"
	"os/exec"
)

// link creates a directory junction, which needs no elevation.
func link(target, name string) error {
	out, err := exec.Command("cmd", "/c", "mklink", "/J", name, target).CombinedOutput()
	if err != nil {
		return fmt.Errorf("mklink: %w: %s", err, out)
	}
	return nil
}

// replaceLink swaps the junction. Windows cannot rename over an existing
// directory entry, so the old pointer is removed first.
func replaceLink(tmp, current string) error {
	if err := os.Remove(current); err != nil && !os.IsNotExist(err) {
		return err
	}
	return os.Rename(tmp, current)
}
