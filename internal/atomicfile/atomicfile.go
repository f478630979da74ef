// Package atomicfile replaces files so that readers only ever see the old or
// the new contents, never a partial write.
package atomicfile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Writer writes files through a sibling temporary file and an atomic rename.
// Rename is swappable so tests can simulate a crash between the two steps.
type Writer struct {
	Perm   os.FileMode
	Rename func(oldpath, newpath string) error
}

// Default is the Writer used by WriteFile and WriteJSON.
var Default = Writer{Perm: 0o600, Rename: os.Rename}

// WriteFile writes data to path using the Default writer.
func WriteFile(path string, data []byte) error {
	return Default.WriteFile(path, data)
}

// WriteJSON writes v as indented JSON to path using the Default writer.
func WriteJSON(path string, v any) error {
	return Default.WriteJSON(path, v)
}

// WriteJSON marshals v with two-space indentation and writes it atomically.
func (w Writer) WriteJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}
	data = append(data, '\n')
	return w.WriteFile(path, data)
}

// WriteFile writes data to a temporary file next to path, syncs it, and
// renames it over path. On any failure the temporary file is removed and the
// previous contents of path are left as they were.
func (w Writer) WriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("ensure dir for %s: %w", path, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file for %s: %w", path, err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file %s: %w", tmpPath, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp file %s: %w", tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file %s: %w", tmpPath, err)
	}

	perm := w.Perm
	if perm == 0 {
		perm = 0o600
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		return fmt.Errorf("chmod temp file %s: %w", tmpPath, err)
	}

	rename := w.Rename
	if rename == nil {
		rename = os.Rename
	}
	if err := rename(tmpPath, path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	committed = true
	return nil
}

// PreserveCorrupt moves a file that failed to parse out of the way so the
// next write doesn't destroy it. The file ends up at path+".corrupt".
func PreserveCorrupt(path string) (string, error) {
	dst := path + ".corrupt"
	if err := os.Rename(path, dst); err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("preserve corrupt %s: %w", path, err)
	}
	return dst, nil
}
