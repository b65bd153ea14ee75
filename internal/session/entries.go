package session

import (
	"os"
	"path/filepath"
	"strings"
)

// Guard-accessible entry keys. The request-level guard reads these and
// nothing else; it has no access to the structured store.
const (
	EntryToken = "token"
	EntryRole  = "role"
)

// EntryStore is the guard-accessible persistence location: a coarse
// token/role subset stored as independently readable entries rather than
// one structured blob. Get is total: a missing or unreadable entry is "".
type EntryStore interface {
	Get(key string) string
	Set(key, value string) error
	Delete(key string) error
}

// FileEntries stores each entry as a flat one-value file under dir, so a
// guard can read a single entry without parsing anything.
type FileEntries struct {
	dir string
}

// NewFileEntries creates the entry store rooted at dir, creating the
// directory if needed.
func NewFileEntries(dir string) (*FileEntries, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}
	return &FileEntries{dir: dir}, nil
}

// Get returns the entry value, or "" when absent or unreadable.
func (f *FileEntries) Get(key string) string {
	data, err := os.ReadFile(filepath.Join(f.dir, key))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// Set writes the entry value.
func (f *FileEntries) Set(key, value string) error {
	return os.WriteFile(filepath.Join(f.dir, key), []byte(value), 0o600)
}

// Delete removes the entry. Deleting an absent entry is not an error.
func (f *FileEntries) Delete(key string) error {
	err := os.Remove(filepath.Join(f.dir, key))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
