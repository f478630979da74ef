// Package native grabs global hotkeys with golang.design/x/hotkey. It needs
// cgo on Linux and macOS, so only the application binary imports it.
package native

import (
	"fmt"
	"log/slog"
	"sync"

	"golang.design/x/hotkey"

	dhotkey "github.com/rkvasne/dahora-app-sub000/internal/hotkey"
)

// Backend supports Windows, macOS and X11. It does not support Wayland.
type Backend struct {
	mu             sync.Mutex
	registeredKeys map[string]*nativeHotkey
	displayServer  dhotkey.DisplayServer
}

// NewBackend creates a backend for the detected display server.
func NewBackend() *Backend {
	ds := dhotkey.DetectDisplayServer()
	slog.Info("Detected display server", "display_server", ds.String())
	return &Backend{
		registeredKeys: make(map[string]*nativeHotkey),
		displayServer:  ds,
	}
}

// SelectBackend returns the native backend if the display server lets it
// grab keys, or nil. A nil backend leaves the application usable from the
// tray without global hotkeys.
func SelectBackend() dhotkey.Backend {
	b := NewBackend()
	if !b.IsAvailable() {
		slog.Warn("Global hotkeys are unavailable on this display server; use the tray menu instead",
			"display_server", b.displayServer.String())
		return nil
	}
	slog.Info("Selected hotkey backend", "backend", b.Name(), "display_server", b.displayServer.String())
	return b
}

func (b *Backend) Name() string {
	return "native (golang.design/x/hotkey)"
}

func (b *Backend) IsAvailable() bool {
	return b.displayServer.SupportsGlobalHotkeys()
}

// Register grabs hotkeyStr. On X11 the combination is also grabbed with
// NumLock and CapsLock on, so the hotkey keeps working when they are active.
func (b *Backend) Register(hotkeyStr string) (dhotkey.RegisteredHotkey, error) {
	if !b.IsAvailable() {
		return nil, fmt.Errorf("%s: %w", b.displayServer.String(), dhotkey.ErrBackendNotAvailable)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.registeredKeys[hotkeyStr]; exists {
		return nil, fmt.Errorf("hotkey '%s' is already registered", hotkeyStr)
	}

	modifiers, key, err := parseHotkey(hotkeyStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse hotkey '%s': %w", hotkeyStr, err)
	}

	wrapped := &nativeHotkey{
		hotkeyStr: hotkeyStr,
		keydownCh: make(chan struct{}),
		stopCh:    make(chan struct{}),
	}
	for i, mods := range expandModifiers(modifiers) {
		hk := hotkey.New(mods, key)
		if err := hk.Register(); err != nil {
			if i == 0 {
				wrapped.unregister()
				return nil, fmt.Errorf("failed to register hotkey '%s': %w", hotkeyStr, err)
			}
			slog.Debug("Lock-mask variant not registered", "hotkey", hotkeyStr, "variant", i, "error", err)
			continue
		}
		wrapped.variants = append(wrapped.variants, hk)
	}
	wrapped.startEventConverters()

	b.registeredKeys[hotkeyStr] = wrapped
	slog.Debug("Grabbed hotkey", "hotkey", hotkeyStr, "variants", len(wrapped.variants))
	return wrapped, nil
}

func (b *Backend) Unregister(hotkeyStr string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	hk, exists := b.registeredKeys[hotkeyStr]
	if !exists {
		return nil
	}
	delete(b.registeredKeys, hotkeyStr)
	return hk.Close()
}

func (b *Backend) UnregisterAll() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for hotkeyStr, hk := range b.registeredKeys {
		if err := hk.Close(); err != nil {
			slog.Warn("Error unregistering hotkey", "hotkey", hotkeyStr, "error", err)
		}
	}
	b.registeredKeys = make(map[string]*nativeHotkey)
	return nil
}

// nativeHotkey merges the keydown events of all grabbed variants into one
// channel.
type nativeHotkey struct {
	hotkeyStr string
	variants  []*hotkey.Hotkey
	keydownCh chan struct{}
	stopCh    chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

func (nh *nativeHotkey) Keydown() <-chan struct{} {
	return nh.keydownCh
}

func (nh *nativeHotkey) startEventConverters() {
	for _, hk := range nh.variants {
		nh.wg.Add(1)
		go nh.convert(hk)
	}
	go func() {
		nh.wg.Wait()
		close(nh.keydownCh)
	}()
}

func (nh *nativeHotkey) convert(hk *hotkey.Hotkey) {
	defer nh.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Recovered from panic in hotkey converter", "hotkey", nh.hotkeyStr, "panic", r)
		}
	}()

	for {
		select {
		case <-nh.stopCh:
			return
		case <-hk.Keydown():
			select {
			case nh.keydownCh <- struct{}{}:
			case <-nh.stopCh:
				return
			}
		}
	}
}

func (nh *nativeHotkey) unregister() error {
	var firstErr error
	for _, hk := range nh.variants {
		if err := hk.Unregister(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to unregister hotkey '%s': %w", nh.hotkeyStr, err)
		}
	}
	nh.variants = nil
	return firstErr
}

// Close stops the converters and releases every variant.
func (nh *nativeHotkey) Close() error {
	var err error
	nh.closeOnce.Do(func() {
		close(nh.stopCh)
		err = nh.unregister()
	})
	return err
}
