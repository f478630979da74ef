// Package resources holds files embedded in the binary.
package resources

import (
	_ "embed"
	"errors"
)

//go:embed icon.ico
var iconData []byte

// ErrIconNotFound is returned when the binary was built without an icon.
var ErrIconNotFound = errors.New("embedded icon not found")

// GetIcon returns the bytes of the embedded icon.
func GetIcon() ([]byte, error) {
	if len(iconData) == 0 {
		return nil, ErrIconNotFound
	}
	return iconData, nil
}
