//go:build !windows

package ui

import "github.com/gen2brain/beeep"

func (n *NotificationManager) platformNotify(title, message string) error {
	// beeep wants an icon path; the embedded icon is only used on Windows.
	return beeep.Notify(title, message, "")
}
