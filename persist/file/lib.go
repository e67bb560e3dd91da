// Package file implements cowtrie.Persist with one file per trie node.
package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// Persist implements the cowtrie.Persist interface for storing and loading
// nodes from files.
type Persist struct {
	basepath string
}

// Load loads the bytes persisted in the named file.
func (p Persist) Load(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return os.ReadFile(filepath.Join(p.basepath, name))
}

// Store persists the given bytes in a file of the given name, if it
// doesn't exist already. Since names identify content, an existing file
// already holds the same bytes.
func (p Persist) Store(ctx context.Context, name string, bytes []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path := filepath.Join(p.basepath, name)
	_, err := os.Stat(path)
	if !os.IsNotExist(err) {
		return err
	}
	tmp, err := os.CreateTemp(p.basepath, "."+name+".*")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	_, err = tmp.Write(bytes)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write %s: %w", name, err)
	}
	return os.Rename(tmp.Name(), path)
}

// NewPersistForPath returns a Persist that loads and stores nodes as
// files in the directory at the given path, creating it if needed.
//
//	p, err := NewPersistForPath("/var/db/users")
//	blob, err := p.Load(ctx, "mF0lRb1tZ8tjWnKZ1Sx9yJ7rKmkW0m6PcvxjS8hUpXo")
func NewPersistForPath(path string) (Persist, error) {
	err := os.MkdirAll(path, 0o755)
	if err != nil {
		return Persist{}, fmt.Errorf("mkdir %s: %w", path, err)
	}
	return Persist{path}, nil
}
