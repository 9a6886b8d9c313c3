package install

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/fatih/color"

	"github.com/ZebulonRouseFrantzich/zoop/internal/layout"
	"github.com/ZebulonRouseFrantzich/zoop/internal/manifest"
	"github.com/ZebulonRouseFrantzich/zoop/internal/state"
)

var (
	headingColor = color.New(color.FgCyan, color.Bold)
	suggestColor = color.New(color.FgYellow)
)

// printNotes writes the manifest's notes and any suggestion whose
// candidates are all missing from both scopes.
func printNotes(w io.Writer, l layout.Layout, eff *manifest.Effective) {
	if len(eff.Notes) > 0 {
		headingColor.Fprintln(w, "Notes")
		headingColor.Fprintln(w, "-----")
		for _, n := range eff.Notes {
			fmt.Fprintln(w, n)
		}
	}

	features := make([]string, 0, len(eff.Suggest))
	for f := range eff.Suggest {
		features = append(features, f)
	}
	sort.Strings(features)
	for _, feature := range features {
		apps := eff.Suggest[feature].Strings()
		if len(apps) == 0 || anyInstalled(l, apps) {
			continue
		}
		suggestColor.Fprintf(w, "%s suggests installing %s for %s.\n", eff.Name, quoteAll(apps), feature)
	}
}

func anyInstalled(l layout.Layout, specs []string) bool {
	for _, spec := range specs {
		app := spec
		if i := strings.LastIndex(app, "/"); i >= 0 {
			app = app[i+1:]
		}
		for _, global := range []bool{false, true} {
			if _, err := state.Installed(l, app, global); err == nil {
				return true
			}
		}
	}
	return false
}

func quoteAll(items []string) string {
	quoted := make([]string, len(items))
	for i, s := range items {
		quoted[i] = "'" + s + "'"
	}
	return strings.Join(quoted, " or ")
}
