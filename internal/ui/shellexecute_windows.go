//go:build windows

package ui

import (
	"fmt"
	"syscall"
	"unsafe"
)

const swShowNormal = 1

var (
	shell32           = syscall.NewLazyDLL("shell32.dll")
	procShellExecuteW = shell32.NewProc("ShellExecuteW")
)

// ShellExecute calls ShellExecuteW. Empty params and dir are passed as NULL.
func ShellExecute(hwnd uintptr, verb, file, params, dir string, showCmd int32) error {
	lpVerb, err := syscall.UTF16PtrFromString(verb)
	if err != nil {
		return fmt.Errorf("failed to convert verb to UTF16Ptr: %w", err)
	}
	lpFile, err := syscall.UTF16PtrFromString(file)
	if err != nil {
		return fmt.Errorf("failed to convert file path to UTF16Ptr: %w", err)
	}
	var lpParams, lpDir *uint16
	if params != "" {
		if lpParams, err = syscall.UTF16PtrFromString(params); err != nil {
			return fmt.Errorf("failed to convert params to UTF16Ptr: %w", err)
		}
	}
	if dir != "" {
		if lpDir, err = syscall.UTF16PtrFromString(dir); err != nil {
			return fmt.Errorf("failed to convert dir to UTF16Ptr: %w", err)
		}
	}

	ret, _, callErr := procShellExecuteW.Call(
		hwnd,
		uintptr(unsafe.Pointer(lpVerb)),
		uintptr(unsafe.Pointer(lpFile)),
		uintptr(unsafe.Pointer(lpParams)),
		uintptr(unsafe.Pointer(lpDir)),
		uintptr(showCmd),
	)
	// Values above 32 are instance handles; anything else is an error code.
	if ret > 32 {
		return nil
	}
	if errno, ok := callErr.(syscall.Errno); ok && errno != 0 {
		return fmt.Errorf("ShellExecuteW failed with return code %d: %w", ret, callErr)
	}
	return fmt.Errorf("ShellExecuteW failed with return code %d", ret)
}
