package config

import (
	lua "github.com/yuin/gopher-lua"
)

// sandboxLuaVM removes every global that reaches outside the VM:
// command execution, filesystem access and code loading.
// string, table and math stay available.
func sandboxLuaVM(L *lua.LState) {
	for _, name := range []string{
		"os", "io",
		"require", "dofile", "loadfile", "load", "loadstring", "module", "package",
		"debug",
	} {
		L.SetGlobal(name, lua.LNil)
	}
}

// newSandboxedVM creates a new Lua VM with sandboxing applied.
func newSandboxedVM() *lua.LState {
	L := lua.NewState(lua.Options{CallStackSize: 256, RegistrySize: 1024 * 8})
	sandboxLuaVM(L)
	return L
}
