//go:build !windows

package envstore

import (
	"github.com/ZebulonRouseFrantzich/zoop/internal/layout"
)

// Open returns the store for a scope.
func Open(l layout.Layout, global bool) (Store, error) {
	return NewFileStore(l.EnvFile(global)), nil
}

// Broadcast is a no-op off Windows; shells pick changes up via activate.
func Broadcast() error {
	return nil
}
