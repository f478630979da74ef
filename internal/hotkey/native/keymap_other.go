//go:build !windows && !linux && !darwin

package native

var platformKeys = map[string]uint16{}
