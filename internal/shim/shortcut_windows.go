//go:build windows

package shim

import (
	"fmt"

	"github.com/go-ole/go-ole"
	"github.com/go-ole/go-ole/oleutil"
)

// writeLink creates a .lnk through the WScript.Shell COM object.
func writeLink(l link) (string, error) {
	path := l.Path + ".lnk"

	if err := ole.CoInitializeEx(0, ole.COINIT_APARTMENTTHREADED|ole.COINIT_SPEED_OVER_MEMORY); err != nil {
		// S_FALSE: already initialized on this thread.
		if oleErr, ok := err.(*ole.OleError); !ok || oleErr.Code() != 1 {
			return "", fmt.Errorf("initialize COM: %w", err)
		}
	}
	defer ole.CoUninitialize()

	unknown, err := oleutil.CreateObject("WScript.Shell")
	if err != nil {
		return "", fmt.Errorf("create WScript.Shell: %w", err)
	}
	defer unknown.Release()

	shell, err := unknown.QueryInterface(ole.IID_IDispatch)
	if err != nil {
		return "", fmt.Errorf("query IDispatch: %w", err)
	}
	defer shell.Release()

	created, err := oleutil.CallMethod(shell, "CreateShortcut", path)
	if err != nil {
		return "", fmt.Errorf("CreateShortcut: %w", err)
	}
	sc := created.ToIDispatch()
	defer sc.Release()

	props := map[string]string{
		"TargetPath":       l.Target,
		"Arguments":        l.Args,
		"WorkingDirectory": l.WorkDir,
	}
	if l.Icon != "" {
		props["IconLocation"] = l.Icon
	}
	for name, value := range props {
		if _, err := oleutil.PutProperty(sc, name, value); err != nil {
			return "", fmt.Errorf("set %s: %w", name, err)
		}
	}
	if _, err := oleutil.CallMethod(sc, "Save"); err != nil {
		return "", fmt.Errorf("save shortcut: %w", err)
	}
	return path, nil
}
