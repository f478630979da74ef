package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/rkvasne/dahora-app-sub000/internal/app"
	"github.com/rkvasne/dahora-app-sub000/internal/config"
	"github.com/rkvasne/dahora-app-sub000/internal/history"
	"github.com/rkvasne/dahora-app-sub000/internal/instance"
	"github.com/rkvasne/dahora-app-sub000/internal/logging"
)

// bindViper wires a command's flags into v.
//
// Precedence (lowest to highest): defaults, config file, DAHORA_* env vars, flags.
func bindViper(cmd *cobra.Command, v *viper.Viper) error {
	configFlag, _ := cmd.Flags().GetString("config")
	if configFlag != "" {
		v.SetConfigFile(configFlag)
	} else {
		v.SetConfigName("dahora")
		v.SetConfigType("toml")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, "dahora"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("config: %w", err)
		}
	}

	v.SetEnvPrefix("DAHORA")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("binding flags: %w", err)
	}

	setupLogging(v)
	return nil
}

// addCommonFlags adds the flags every command understands.
func addCommonFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("config", "", "path to config file (overrides auto-discovery)")
	f.String("data-dir", "", "directory holding settings, history and statistics (default: user config dir/dahora)")
	f.String("log-format", "auto", "log format: auto|text|json")
	f.String("log-level", "", "log level: debug|info|warn|error (default: info, warn for data commands)")
}

func setupLogging(v *viper.Viper) {
	levelStr := v.GetString("log-level")
	if levelStr == "" {
		levelStr = v.GetString("default-log-level")
	}
	_, err := logging.Setup(logging.ParseFormat(v.GetString("log-format")), logging.ParseLevel(levelStr), v.GetString("log-file"))
	if err != nil {
		slog.Warn("Failed to open log file, logging to stderr only", "error", err)
	}
}

// dataDir resolves --data-dir, creating the directory if needed.
func dataDir(v *viper.Viper) (string, error) {
	dir := v.GetString("data-dir")
	if dir == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			return "", fmt.Errorf("no data directory: %w", err)
		}
		dir = filepath.Join(base, "dahora")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}
	return dir, nil
}

// withStores runs fn with the settings and history of the data directory.
// Commands that change data hold the instance lock while they run, so they
// can't race a running tray instance.
func withStores(v *viper.Viper, mutate bool, fn func(*config.Store, *history.Store) error) error {
	dir, err := dataDir(v)
	if err != nil {
		return err
	}
	if mutate {
		lock, err := instance.Acquire(dir)
		if errors.Is(err, instance.ErrAlreadyRunning) {
			return fmt.Errorf("%w; quit the tray application first", err)
		}
		if err != nil {
			return err
		}
		defer lock.Release()
	}

	cfg := config.Open(filepath.Join(dir, app.SettingsFile))
	hist := history.New(filepath.Join(dir, app.HistoryFile), cfg.Settings().MaxHistoryItems)
	hist.Load()
	return fn(cfg, hist)
}

// dataCmd sets up v for a command that works on stored data.
func dataCmd(cmd *cobra.Command, v *viper.Viper) *cobra.Command {
	addCommonFlags(cmd)
	v.SetDefault("default-log-level", "warn")
	cmd.PreRunE = func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) }
	return cmd
}
