package config

import (
	"errors"
	"fmt"
	"io"

	"github.com/BurntSushi/toml"
)

type exportFile struct {
	Shortcuts []exportShortcut `toml:"shortcut"`
}

type exportShortcut struct {
	Hotkey      string `toml:"hotkey"`
	Prefix      string `toml:"prefix"`
	Description string `toml:"description,omitempty"`
	Enabled     *bool  `toml:"enabled,omitempty"`
}

// ImportResult is the outcome for one imported shortcut. ID is set when the
// shortcut was added, Err when it was rejected.
type ImportResult struct {
	Hotkey string
	Prefix string
	ID     int
	Err    error
}

// ImportReport lists the outcome of every entry in an import file.
type ImportReport struct {
	Added   int
	Results []ImportResult
}

// ExportShortcuts writes the custom shortcuts to w as TOML. Ids are not
// exported; importing assigns new ones.
func (s *Store) ExportShortcuts(w io.Writer) error {
	var f exportFile
	for _, sc := range s.Shortcuts() {
		enabled := sc.Enabled
		f.Shortcuts = append(f.Shortcuts, exportShortcut{
			Hotkey:      sc.Hotkey,
			Prefix:      sc.Prefix,
			Description: sc.Description,
			Enabled:     &enabled,
		})
	}
	if err := toml.NewEncoder(w).Encode(f); err != nil {
		return fmt.Errorf("failed to encode shortcuts: %w", err)
	}
	return nil
}

// ImportShortcuts reads TOML written by ExportShortcuts and adds each entry
// through AddShortcut, so every rule applies. One rejected entry doesn't stop
// the others. An error is returned only if r can't be decoded.
func (s *Store) ImportShortcuts(r io.Reader) (ImportReport, error) {
	var f exportFile
	if _, err := toml.NewDecoder(r).Decode(&f); err != nil {
		return ImportReport{}, fmt.Errorf("failed to decode shortcuts: %w", err)
	}

	report := ImportReport{Results: make([]ImportResult, 0, len(f.Shortcuts))}
	for _, e := range f.Shortcuts {
		enabled := true
		if e.Enabled != nil {
			enabled = *e.Enabled
		}
		id, err := s.AddShortcut(e.Hotkey, e.Prefix, e.Description, enabled)
		report.Results = append(report.Results, ImportResult{Hotkey: e.Hotkey, Prefix: e.Prefix, ID: id, Err: err})
		if err == nil {
			report.Added++
		}
	}
	return report, nil
}

// Rejected returns the entries that were not added because they failed
// validation, as opposed to failing to save.
func (r ImportReport) Rejected() []ImportResult {
	var out []ImportResult
	for _, res := range r.Results {
		var verr *ValidationError
		if errors.As(res.Err, &verr) {
			out = append(out, res)
		}
	}
	return out
}
