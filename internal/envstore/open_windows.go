//go:build windows

package envstore

import (
	"github.com/ZebulonRouseFrantzich/zoop/internal/layout"
)

// Open returns the registry-backed store for a scope.
func Open(_ layout.Layout, global bool) (Store, error) {
	return OpenRegistry(global)
}
