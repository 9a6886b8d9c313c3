package hook

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	lua "github.com/yuin/gopher-lua"
)

// newFS builds the fs table. Every path argument is resolved against the
// first root when relative and must stay inside one of roots.
func newFS(L *lua.LState, roots []string) *lua.LTable {
	var clean []string
	for _, r := range roots {
		if r != "" {
			clean = append(clean, filepath.Clean(r))
		}
	}

	resolve := func(L *lua.LState, n int) string {
		p := filepath.FromSlash(strings.ReplaceAll(L.CheckString(n), `\`, "/"))
		if !filepath.IsAbs(p) && len(clean) > 0 {
			p = filepath.Join(clean[0], p)
		}
		p = filepath.Clean(p)
		for _, r := range clean {
			if p == r || strings.HasPrefix(p, r+string(os.PathSeparator)) {
				return p
			}
		}
		L.RaiseError("path %s is outside the app directories", p)
		return ""
	}
	check := func(L *lua.LState, err error) int {
		if err != nil {
			L.RaiseError("%v", err)
		}
		return 0
	}

	t := L.NewTable()
	L.SetField(t, "exists", L.NewFunction(func(L *lua.LState) int {
		_, err := os.Stat(resolve(L, 1))
		L.Push(lua.LBool(err == nil))
		return 1
	}))
	L.SetField(t, "read", L.NewFunction(func(L *lua.LState) int {
		data, err := os.ReadFile(resolve(L, 1))
		check(L, err)
		L.Push(lua.LString(data))
		return 1
	}))
	L.SetField(t, "write", L.NewFunction(func(L *lua.LState) int {
		path := resolve(L, 1)
		content := L.CheckString(2)
		check(L, os.MkdirAll(filepath.Dir(path), 0755))
		return check(L, os.WriteFile(path, []byte(content), 0644))
	}))
	L.SetField(t, "mkdir", L.NewFunction(func(L *lua.LState) int {
		return check(L, os.MkdirAll(resolve(L, 1), 0755))
	}))
	L.SetField(t, "remove", L.NewFunction(func(L *lua.LState) int {
		return check(L, os.RemoveAll(resolve(L, 1)))
	}))
	L.SetField(t, "rename", L.NewFunction(func(L *lua.LState) int {
		from, to := resolve(L, 1), resolve(L, 2)
		check(L, os.MkdirAll(filepath.Dir(to), 0755))
		return check(L, os.Rename(from, to))
	}))
	L.SetField(t, "copy", L.NewFunction(func(L *lua.LState) int {
		return check(L, copyFile(resolve(L, 1), resolve(L, 2)))
	}))
	L.SetField(t, "list", L.NewFunction(func(L *lua.LState) int {
		entries, err := os.ReadDir(resolve(L, 1))
		check(L, err)
		out := L.NewTable()
		for _, e := range entries {
			out.Append(lua.LString(e.Name()))
		}
		L.Push(out)
		return 1
	}))
	return t
}

func copyFile(from, to string) error {
	in, err := os.Open(from)
	if err != nil {
		return err
	}
	defer in.Close()
	info, err := in.Stat()
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", from)
	}
	if err := os.MkdirAll(filepath.Dir(to), 0755); err != nil {
		return err
	}
	out, err := os.OpenFile(to, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
