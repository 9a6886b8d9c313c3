package install

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ZebulonRouseFrantzich/zoop/internal/appref"
	"github.com/ZebulonRouseFrantzich/zoop/internal/manifest"
)

// MaxDependencyDepth bounds how deep a dependency chain may go.
const MaxDependencyDepth = 16

// ErrDependencyTooDeep is returned when a chain exceeds MaxDependencyDepth.
var ErrDependencyTooDeep = errors.New("dependency chain too deep")

// DependencyCycleError reports a dependency chain that returns to an app
// already on it.
type DependencyCycleError struct {
	Chain []string
}

func (e *DependencyCycleError) Error() string {
	return fmt.Sprintf("dependency cycle: %s", strings.Join(e.Chain, " -> "))
}

// ManifestSource loads dependency manifests.
type ManifestSource interface {
	Lookup(bucket, app string) (*manifest.Manifest, error)
	Find(app string) (*manifest.Manifest, error)
}

type frame struct {
	m    *manifest.Manifest
	name string
	deps []string
	next int
}

// ResolveDepends walks the depends graph of root and returns the
// dependency manifests in install order, leaves first. root itself is not
// included. The walk uses an explicit stack, a visited set and a depth
// bound; a chain that revisits an app yields a DependencyCycleError.
func ResolveDepends(src ManifestSource, root *manifest.Manifest) ([]*manifest.Manifest, error) {
	rootName, _ := root.Name()
	stack := []*frame{{m: root, name: rootName, deps: root.Depends.Strings()}}
	onPath := map[string]bool{rootName: true}
	done := map[string]bool{}
	var order []*manifest.Manifest

	for len(stack) > 0 {
		top := stack[len(stack)-1]
		if top.next == len(top.deps) {
			stack = stack[:len(stack)-1]
			delete(onPath, top.name)
			done[top.name] = true
			if top.m != root {
				order = append(order, top.m)
			}
			continue
		}
		spec := top.deps[top.next]
		top.next++

		ref, err := appref.ParseDependency(spec)
		if err != nil {
			return nil, err
		}
		if onPath[ref.App] {
			chain := make([]string, 0, len(stack)+1)
			for _, f := range stack {
				chain = append(chain, f.name)
			}
			return nil, &DependencyCycleError{Chain: append(chain, ref.App)}
		}
		if done[ref.App] {
			continue
		}
		if len(stack) > MaxDependencyDepth {
			return nil, fmt.Errorf("%w: %s requires more than %d levels", ErrDependencyTooDeep, rootName, MaxDependencyDepth)
		}

		var dep *manifest.Manifest
		if ref.Bucket != "" {
			dep, err = src.Lookup(ref.Bucket, ref.App)
		} else {
			dep, err = src.Find(ref.App)
		}
		if err != nil {
			return nil, fmt.Errorf("resolve dependency %s of %s: %w", spec, top.name, err)
		}
		onPath[ref.App] = true
		stack = append(stack, &frame{m: dep, name: ref.App, deps: dep.Depends.Strings()})
	}
	return order, nil
}
