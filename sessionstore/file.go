package sessionstore

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/go-playground/errors/v5"
	"github.com/gorilla/securecookie"
)

const fileSealName = "sessionstore"

var _ KV = &File{}

// File persists the KV map to a single file, sealed with a
// securecookie.SecureCookie so tokens are authenticated and encrypted at
// rest. Writes go through a temp file and rename.
//
// The SecureCookie's default 4KB limit applies to the sealed payload; raise
// it with sc.MaxLength(0) when storing large identity records.
type File struct {
	mu     sync.RWMutex
	path   string
	sc     *securecookie.SecureCookie
	values map[string]string
}

// NewFile opens or creates the store at path. A file that fails to unseal is
// treated as empty rather than fatal, so a rotated key degrades to a fresh
// login instead of a broken application.
func NewFile(path string, sc *securecookie.SecureCookie) (*File, error) {
	f := &File{
		path:   path,
		sc:     sc,
		values: make(map[string]string),
	}

	raw, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		return f, nil
	case err != nil:
		return nil, errors.Wrap(err, "os.ReadFile()")
	}

	values := make(map[string]string)
	if err := sc.Decode(fileSealName, string(raw), &values); err == nil {
		f.values = values
	}

	return f, nil
}

// Get returns the value for key.
func (f *File) Get(_ context.Context, key string) (string, bool, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	value, ok := f.values[key]

	return value, ok, nil
}

// Set stores value under key and flushes the sealed map to disk.
func (f *File) Set(_ context.Context, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.values[key] = value

	if err := f.flush(); err != nil {
		return errors.Wrap(err, "File.flush()")
	}

	return nil
}

// Delete removes all given keys in a single flush.
func (f *File) Delete(_ context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, key := range keys {
		delete(f.values, key)
	}

	if err := f.flush(); err != nil {
		return errors.Wrap(err, "File.flush()")
	}

	return nil
}

// flush must be called with the write lock held.
func (f *File) flush() error {
	sealed, err := f.sc.Encode(fileSealName, f.values)
	if err != nil {
		return errors.Wrap(err, "securecookie.Encode()")
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".sessionstore-*")
	if err != nil {
		return errors.Wrap(err, "os.CreateTemp()")
	}

	if _, err := tmp.WriteString(sealed); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())

		return errors.Wrap(err, "os.File.WriteString()")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())

		return errors.Wrap(err, "os.File.Close()")
	}

	if err := os.Rename(tmp.Name(), f.path); err != nil {
		os.Remove(tmp.Name())

		return errors.Wrap(err, "os.Rename()")
	}

	return nil
}
