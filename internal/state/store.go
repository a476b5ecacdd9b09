// Package state persists captured backlight values between invocations.
// The store is a directory of raw-text sidecar files, one per attribute,
// on durable storage (the sysfs nodes themselves lose their contents when
// the embedded controller powers down).
package state

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Store reads and writes per-attribute sidecar files under a state directory.
type Store struct {
	dir string
}

// New creates a store rooted at the given directory. The directory is
// created on the first Save.
func New(dir string) *Store {
	return &Store{dir: dir}
}

// Path returns the sidecar path for the named attribute.
func (s *Store) Path(name string) string {
	return filepath.Join(s.dir, name)
}

// Load returns the saved value for the named attribute. A missing sidecar
// surfaces as os.ErrNotExist so callers can treat it as "nothing to restore".
func (s *Store) Load(name string) (string, error) {
	data, err := os.ReadFile(s.Path(name))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// Save writes the value for the named attribute, replacing any previous one.
// The write is synced and renamed into place before Save returns: a suspend
// transition may follow immediately and must not race an unflushed write.
func (s *Store) Save(name, value string) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}

	path := s.Path(name)
	tmpPath := path + ".tmp"
	f, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err = f.WriteString(value + "\n"); err == nil {
		err = f.Sync()
	}
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing state file %q: %w", path, err)
	}
	return os.Rename(tmpPath, path)
}
