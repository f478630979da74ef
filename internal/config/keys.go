package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/rkvasne/dahora-app-sub000/internal/keycombo"
)

// SettingKeys lists the document keys accepted by Get and Set, in document
// order.
func SettingKeys() []string {
	t := reflect.TypeOf(Settings{})
	keys := make([]string, 0, t.NumField())
	for i := range t.NumField() {
		name, _, _ := strings.Cut(t.Field(i).Tag.Get("json"), ",")
		if name != "" && name != "-" {
			keys = append(keys, name)
		}
	}
	return keys
}

func settingKey(key string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(key)), "-", "_")
}

func (s Settings) fields() (map[string]any, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return nil, err
	}
	return m, nil
}

// Get returns the value of key as text.
func (s Settings) Get(key string) (string, error) {
	m, err := s.fields()
	if err != nil {
		return "", err
	}
	v, ok := m[settingKey(key)]
	if !ok {
		return "", invalid("key", "unknown setting '%s'", key)
	}
	return fmt.Sprint(v), nil
}

// Set parses value according to the type of key and stores it. Range checks
// are left to normalize.
func (s *Settings) Set(key, value string) error {
	m, err := s.fields()
	if err != nil {
		return err
	}
	k := settingKey(key)
	cur, ok := m[k]
	if !ok {
		return invalid("key", "unknown setting '%s'", key)
	}
	switch cur.(type) {
	case json.Number:
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return invalid(k, "%s must be a whole number, got '%s'", k, value)
		}
		m[k] = n
	case bool:
		b, err := strconv.ParseBool(strings.TrimSpace(value))
		if err != nil {
			return invalid(k, "%s must be true or false, got '%s'", k, value)
		}
		m[k] = b
	default:
		m[k] = value
	}

	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	var next Settings
	if err := json.Unmarshal(data, &next); err != nil {
		return fmt.Errorf("set %s: %w", k, err)
	}
	*s = next
	return nil
}

// builtinConflict reports a built-in hotkey that an earlier built-in or a
// custom shortcut already uses. Hotkeys that don't parse are skipped;
// normalize replaces those with their defaults.
func (s Settings) builtinConflict(shortcuts []Shortcut) error {
	taken := make(map[string]string, len(shortcuts)+3)
	for _, sc := range shortcuts {
		taken[keycombo.Canonical(sc.Hotkey)] = fmt.Sprintf("shortcut %d (%s)", sc.ID, sc.Prefix)
	}
	keys := s.BuiltinHotkeys()
	for _, action := range []string{ActionPasteDatetime, ActionSearchHistory, ActionRefreshMenu} {
		hk := keys[action]
		if !keycombo.IsValid(hk, false) {
			continue
		}
		hk = keycombo.Canonical(hk)
		if owner, ok := taken[hk]; ok {
			return invalid("hotkey_"+action, "'%s' for %s is already used by %s", hk, action, owner)
		}
		taken[hk] = "the built-in action " + action
	}
	return nil
}
