package ui

import (
	"log/slog"
	"sync"
)

// Level is the severity of a notification. Errors are shown even when
// notifications are turned off in the settings.
type Level int

const (
	LevelInfo Level = iota
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

// NotificationManager shows desktop notifications.
type NotificationManager struct {
	mu           sync.Mutex
	enabled      bool
	appName      string
	embeddedIcon []byte
	push         func(title, message string) error
}

// NewNotificationManager creates a notification manager. Pass nil icon to
// show notifications without one.
func NewNotificationManager(enabled bool, appName string, embeddedIcon []byte) *NotificationManager {
	n := &NotificationManager{
		enabled:      enabled,
		appName:      appName,
		embeddedIcon: embeddedIcon,
	}
	n.push = n.platformNotify
	return n
}

// SetEnabled follows the notifications_enabled setting.
func (n *NotificationManager) SetEnabled(enabled bool) {
	n.mu.Lock()
	n.enabled = enabled
	n.mu.Unlock()
}

// Notify shows a notification. A delivery failure is only logged.
func (n *NotificationManager) Notify(level Level, title, message string) {
	n.mu.Lock()
	enabled := n.enabled
	n.mu.Unlock()

	if !enabled && level < LevelError {
		slog.Debug("Notification suppressed", "level", level.String(), "title", title)
		return
	}
	if err := n.push(title, message); err != nil {
		slog.Warn("Error showing notification", "title", title, "error", err)
		return
	}
	slog.Debug("Notification sent", "level", level.String(), "title", title)
}

var (
	globalMu                  sync.Mutex
	globalNotificationManager *NotificationManager
)

// InitGlobalNotifications sets the manager used by ShowNotification.
func InitGlobalNotifications(enabled bool, appName string, embeddedIcon []byte) *NotificationManager {
	n := NewNotificationManager(enabled, appName, embeddedIcon)
	globalMu.Lock()
	globalNotificationManager = n
	globalMu.Unlock()
	return n
}

// ShowNotification is a convenience function for components that don't hold
// the manager themselves.
func ShowNotification(level Level, title, message string) {
	globalMu.Lock()
	n := globalNotificationManager
	globalMu.Unlock()
	if n == nil {
		slog.Info("Notification not shown (manager not initialized)", "title", title, "message", message)
		return
	}
	n.Notify(level, title, message)
}
