//go:build windows

package ui

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-toast/toast"
)

func (n *NotificationManager) platformNotify(title, message string) error {
	var iconPath string
	if len(n.embeddedIcon) > 0 {
		p, err := writeTempIcon(n.embeddedIcon)
		if err != nil {
			slog.Warn("Error writing temporary icon", "error", err)
		} else {
			iconPath = p
			time.AfterFunc(10*time.Second, func() {
				if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
					slog.Debug("Error removing temporary icon file", "path", p, "error", err)
				}
			})
		}
	}

	notification := toast.Notification{
		AppID:   n.appName,
		Title:   title,
		Message: message,
		Icon:    iconPath,
	}
	if err := notification.Push(); err != nil {
		if strings.Contains(err.Error(), "notification platform is unavailable") {
			return fmt.Errorf("notifications are disabled in Windows settings: %w", err)
		}
		return err
	}
	return nil
}

func writeTempIcon(iconData []byte) (string, error) {
	tmpFile, err := os.CreateTemp("", "dahora-icon-*.ico")
	if err != nil {
		return "", err
	}
	defer tmpFile.Close()

	if _, err := tmpFile.Write(iconData); err != nil {
		_ = os.Remove(tmpFile.Name())
		return "", err
	}
	absPath, err := filepath.Abs(tmpFile.Name())
	if err != nil {
		return tmpFile.Name(), nil
	}
	return absPath, nil
}
