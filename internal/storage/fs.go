package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/starford/othala/internal/apperr"
	"github.com/starford/othala/internal/models"
)

// FS implements Provider backed by the local file system. Entries live in
// <root>/<first two hex chars>/<address>.json.
type FS struct {
	root string // absolute path to store directory
}

var _ Provider = (*FS)(nil)

// NewFS creates a new FS provider rooted at the given directory.
// The directory must already exist.
func NewFS(root string) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage: root is not a directory: %s", abs)
	}
	return &FS{root: abs}, nil
}

// entryPath maps an address to its file, rejecting anything that is not a
// well-formed address so no caller input reaches the file system unchecked.
func (f *FS) entryPath(addr models.Address) (string, error) {
	if !addr.Valid() {
		return "", apperr.Invalid(fmt.Errorf("storage: malformed address %q", addr))
	}
	s := string(addr)
	return filepath.Join(f.root, s[:2], s+".json"), nil
}

// Put writes e unless an entry with the same address already exists.
func (f *FS) Put(_ context.Context, e models.Entry) (models.Address, error) {
	addr := e.Address()
	abs, err := f.entryPath(addr)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(abs); err == nil {
		return addr, nil
	}
	data, err := json.Marshal(e)
	if err != nil {
		return "", fmt.Errorf("storage: encode entry: %w", err)
	}
	if err := writeAtomic(abs, data); err != nil {
		return "", apperr.Unavailable("storage: put "+addr.String(), err)
	}
	return addr, nil
}

// Get returns the entry stored at addr.
func (f *FS) Get(_ context.Context, addr models.Address) (models.Entry, error) {
	abs, err := f.entryPath(addr)
	if err != nil {
		return models.Entry{}, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return models.Entry{}, fmt.Errorf("storage: get %s: %w", addr, apperr.ErrNotFound)
		}
		return models.Entry{}, apperr.Unavailable("storage: get "+addr.String(), err)
	}
	var e models.Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return models.Entry{}, fmt.Errorf("storage: decode %s: %w", addr, err)
	}
	return e, nil
}

// Has reports whether an entry file exists for addr.
func (f *FS) Has(_ context.Context, addr models.Address) (bool, error) {
	abs, err := f.entryPath(addr)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(abs)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, os.ErrNotExist):
		return false, nil
	default:
		return false, apperr.Unavailable("storage: stat "+addr.String(), err)
	}
}

// Remove deletes the entry file for addr.
func (f *FS) Remove(_ context.Context, addr models.Address) error {
	abs, err := f.entryPath(addr)
	if err != nil {
		return err
	}
	if err := os.Remove(abs); err != nil && !errors.Is(err, os.ErrNotExist) {
		return apperr.Unavailable("storage: remove "+addr.String(), err)
	}
	return nil
}

// Close is a no-op for the file system backend.
func (f *FS) Close() error { return nil }

// writeAtomic writes content: tmp file → fsync → rename.
func writeAtomic(abs string, content []byte) error {
	dir := filepath.Dir(abs)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".othala-tmp-*")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	tmpName := tmp.Name()

	// Clean up on any failure path.
	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp: %w", err)
	}
	if err := os.Rename(tmpName, abs); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	success = true
	return nil
}
