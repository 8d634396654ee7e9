package registry

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/blackwell-systems/bvm/internal/fsutil"
)

// Pointer is the single-slot record of the active version. It stores the
// absolute install path of that version in PointerFileName under the root.
type Pointer struct {
	store *Store
	file  string
}

// NewPointer returns the pointer belonging to store.
func NewPointer(store *Store) *Pointer {
	return &Pointer{
		store: store,
		file:  filepath.Join(store.Root(), PointerFileName),
	}
}

// File returns the pointer file path.
func (p *Pointer) File() string {
	return p.file
}

// Set makes v the active version. It fails with ErrNotFound when v is not
// installed, leaving the previous value untouched.
func (p *Pointer) Set(v Version) error {
	ok, err := p.store.Exists(v)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%s: %w", v, ErrNotFound)
	}

	path, err := filepath.Abs(p.store.Path(v))
	if err != nil {
		return fmt.Errorf("failed to resolve install path for %s: %w", v, err)
	}
	if err := fsutil.WriteFileAtomic(p.file, []byte(path), 0644); err != nil {
		return fmt.Errorf("failed to write active version: %w", err)
	}
	return nil
}

// Get returns the stored install path. ok is false when no version has been
// activated yet.
func (p *Pointer) Get() (path string, ok bool, err error) {
	data, err := os.ReadFile(p.file)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to read active version: %w", err)
	}
	path = strings.TrimSpace(string(data))
	if path == "" {
		return "", false, nil
	}
	return path, true, nil
}

// Version maps the stored path back to a version name. ok is false when the
// pointer is unset or names a directory outside the root.
func (p *Pointer) Version() (Version, bool, error) {
	path, ok, err := p.Get()
	if err != nil || !ok {
		return "", false, err
	}
	root, err := filepath.Abs(p.store.Root())
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve root: %w", err)
	}
	if filepath.Dir(filepath.Clean(path)) != root {
		return "", false, nil
	}
	return Version(filepath.Base(path)), true, nil
}

// Clear removes the pointer file. Clearing an unset pointer is not an error.
func (p *Pointer) Clear() error {
	if err := os.Remove(p.file); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to clear active version: %w", err)
	}
	return nil
}
