//go:build windows

package envstore

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"
	"golang.org/x/sys/windows/registry"
)

const (
	userEnvKey   = `Environment`
	systemEnvKey = `SYSTEM\CurrentControlSet\Control\Session Manager\Environment`
)

// RegistryStore reads and writes HKCU\Environment, or the machine
// environment for global installs.
type RegistryStore struct {
	root registry.Key
	path string
}

// OpenRegistry returns the registry store for a scope.
func OpenRegistry(global bool) (*RegistryStore, error) {
	if global {
		return &RegistryStore{root: registry.LOCAL_MACHINE, path: systemEnvKey}, nil
	}
	return &RegistryStore{root: registry.CURRENT_USER, path: userEnvKey}, nil
}

// Get returns a variable without expanding %references%.
func (r *RegistryStore) Get(name string) (string, bool, error) {
	k, err := registry.OpenKey(r.root, r.path, registry.QUERY_VALUE)
	if err != nil {
		return "", false, fmt.Errorf("open environment key: %w", err)
	}
	defer k.Close()

	v, _, err := k.GetStringValue(name)
	if errors.Is(err, registry.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read %s: %w", name, err)
	}
	return v, true, nil
}

// List returns every variable in the key.
func (r *RegistryStore) List() (map[string]string, error) {
	k, err := registry.OpenKey(r.root, r.path, registry.QUERY_VALUE|registry.ENUMERATE_SUB_KEYS)
	if err != nil {
		return nil, fmt.Errorf("open environment key: %w", err)
	}
	defer k.Close()

	names, err := k.ReadValueNames(0)
	if err != nil {
		return nil, fmt.Errorf("list environment: %w", err)
	}
	sort.Strings(names)
	out := make(map[string]string, len(names))
	for _, n := range names {
		if v, _, err := k.GetStringValue(n); err == nil {
			out[n] = v
		}
	}
	return out, nil
}

// Set writes a variable as REG_EXPAND_SZ when it references other
// variables, REG_SZ otherwise. An empty value deletes it. Running
// processes are notified.
func (r *RegistryStore) Set(name, value string) error {
	k, err := registry.OpenKey(r.root, r.path, registry.SET_VALUE)
	if err != nil {
		return &WriteError{Name: name, Err: err}
	}
	defer k.Close()

	switch {
	case value == "":
		err = k.DeleteValue(name)
		if errors.Is(err, registry.ErrNotExist) {
			err = nil
		}
	case strings.Contains(value, "%"):
		err = k.SetExpandStringValue(name, value)
	default:
		err = k.SetStringValue(name, value)
	}
	if err != nil {
		return &WriteError{Name: name, Err: err}
	}
	return Broadcast()
}

const (
	hwndBroadcast   = 0xFFFF
	wmSettingChange = 0x001A
	smtoAbortIfHung = 0x0002
)

var procSendMessageTimeout = windows.NewLazySystemDLL("user32.dll").NewProc("SendMessageTimeoutW")

// Broadcast sends WM_SETTINGCHANGE so Explorer and new shells see the change.
func Broadcast() error {
	env, err := syscall.UTF16PtrFromString("Environment")
	if err != nil {
		return err
	}
	var result uintptr
	ret, _, callErr := procSendMessageTimeout.Call(
		hwndBroadcast,
		wmSettingChange,
		0,
		uintptr(unsafe.Pointer(env)),
		smtoAbortIfHung,
		5000,
		uintptr(unsafe.Pointer(&result)),
	)
	if ret == 0 {
		return fmt.Errorf("broadcast environment change: %w", callErr)
	}
	return nil
}
