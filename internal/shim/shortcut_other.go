//go:build !windows

package shim

func writeLink(l link) (string, error) {
	return writeDesktopEntry(l)
}
