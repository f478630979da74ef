package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/rkvasne/dahora-app-sub000/internal/app"
	"github.com/rkvasne/dahora-app-sub000/internal/clipboard"
	nativeclip "github.com/rkvasne/dahora-app-sub000/internal/clipboard/native"
	"github.com/rkvasne/dahora-app-sub000/internal/config"
	nativehotkey "github.com/rkvasne/dahora-app-sub000/internal/hotkey/native"
	"github.com/rkvasne/dahora-app-sub000/internal/instance"
	"github.com/rkvasne/dahora-app-sub000/internal/resources"
	"github.com/rkvasne/dahora-app-sub000/internal/tray"
	"github.com/rkvasne/dahora-app-sub000/internal/ui"
)

func newRunCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the tray application (default)",
		Long: `Starts the tray icon, the clipboard monitor and the global hotkeys.
Only one instance can run per data directory.`,
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(cmd *cobra.Command, _ []string) error { return runTray(v) },
	}
	addCommonFlags(cmd)
	cmd.Flags().String("log-file", "", "also append logs to this file")
	v.SetDefault("default-log-level", "info")
	return cmd
}

func newClipboard(backend string) (clipboard.Clipboard, error) {
	if backend == config.BackendNative {
		return nativeclip.New()
	}
	return clipboard.NewAtotto()
}

func runTray(v *viper.Viper) error {
	dir, err := dataDir(v)
	if err != nil {
		return err
	}

	icon, err := resources.GetIcon()
	if err != nil {
		slog.Warn("Failed to load embedded icon", "error", err)
	}
	notifier := ui.InitGlobalNotifications(true, app.AppName, icon)

	application, err := app.New(app.Options{
		DataDir:       dir,
		Version:       Version,
		NewClipboard:  newClipboard,
		HotkeyBackend: nativehotkey.SelectBackend(),
		Dialogs:       ui.Zenity{AppName: app.AppName},
		Notifier:      notifier,
	})
	if errors.Is(err, instance.ErrAlreadyRunning) {
		notifier.Notify(ui.LevelInfo, app.AppName, "Dahora is already running. Look for its icon in the system tray.")
		return err
	}
	if err != nil {
		return fmt.Errorf("failed to start: %w", err)
	}

	t := tray.New(tray.Options{
		Title:         app.AppName,
		Version:       Version,
		Icon:          icon,
		HistorySlots:  10,
		ShortcutSlots: config.ShortcutLimit,
		Spawn:         application.Spawn,
	}, tray.Actions{
		CopyDatetime:    application.CopyDatetime,
		SearchHistory:   application.SearchHistory,
		CopyHistory:     application.CopyHistory,
		InsertShortcut:  application.InsertShortcut,
		RecordClipboard: application.RecordClipboard,
		ClearHistory:    application.ClearHistory,
		AddShortcut:     application.AddShortcut,
		RemoveShortcut:  application.RemoveShortcut,
		OpenSettings:    application.OpenSettings,
		Quit:            application.Quit,
	})
	application.SetTray(t)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		select {
		case <-ctx.Done():
			slog.Info("Received signal, shutting down")
			application.Quit()
		case <-application.Coordinator().Done():
		}
	}()

	application.Run()
	return nil
}
