// Package registry owns the on-disk layout of installed runtime versions.
//
// The root directory holds two namespaces:
//   - one subdirectory per installed version (managed by Store)
//   - a single reserved pointer file naming the active version (managed by Pointer)
//
// A version is installed exactly when its directory exists. An empty directory
// left behind by an interrupted install still counts as installed.
package registry

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"golang.org/x/mod/semver"

	"github.com/blackwell-systems/bvm/internal/fsutil"
)

// PointerFileName is the reserved entry inside the root that stores the
// active version path. It is never a valid version name.
const PointerFileName = "current_version"

var (
	// ErrAlreadyExists is returned when creating a version that is installed.
	ErrAlreadyExists = errors.New("version already exists")

	// ErrNotFound is returned when operating on a version that is not installed.
	ErrNotFound = errors.New("version does not exist")

	// ErrInvalidVersion is returned for identifiers that cannot map to a
	// directory directly under the root.
	ErrInvalidVersion = errors.New("invalid version identifier")
)

// versionChars is the alphabet of a version identifier. It keeps identifiers
// inert both as directory names and inside the install command.
var versionChars = regexp.MustCompile(`^[0-9A-Za-z._+-]+$`)

// Version is an opaque version identifier such as "1.1.34".
type Version string

func (v Version) String() string { return string(v) }

// Validate reports whether v can be used as a directory name under the root
// without escaping it or colliding with reserved entries.
func (v Version) Validate() error {
	s := string(v)
	switch {
	case s == "":
		return fmt.Errorf("%w: empty", ErrInvalidVersion)
	case s == "." || s == "..":
		return fmt.Errorf("%w: %q", ErrInvalidVersion, s)
	case strings.HasPrefix(s, "."):
		return fmt.Errorf("%w: %q starts with a dot", ErrInvalidVersion, s)
	case strings.ContainsAny(s, `/\`) || strings.ContainsRune(s, filepath.Separator):
		return fmt.Errorf("%w: %q contains a path separator", ErrInvalidVersion, s)
	case s == PointerFileName:
		return fmt.Errorf("%w: %q is reserved", ErrInvalidVersion, s)
	case !versionChars.MatchString(s):
		return fmt.Errorf("%w: %q may only contain letters, digits and . _ + -", ErrInvalidVersion, s)
	}
	return nil
}

// Store manages version directories under a root.
type Store struct {
	root string
}

// NewStore returns a Store rooted at root. The root is created lazily by
// Create.
func NewStore(root string) *Store {
	return &Store{root: filepath.Clean(root)}
}

// Root returns the store root.
func (s *Store) Root() string {
	return s.root
}

// Path returns the install directory for v. It does not check existence.
func (s *Store) Path(v Version) string {
	return filepath.Join(s.root, string(v))
}

// Exists reports whether v's directory is present.
func (s *Store) Exists(v Version) (bool, error) {
	if err := v.Validate(); err != nil {
		return false, err
	}
	info, err := os.Stat(s.Path(v))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat version %s: %w", v, err)
	}
	return info.IsDir(), nil
}

// Create makes v's directory and returns its path. It fails with
// ErrAlreadyExists when the directory is present, so callers can run it as
// the precondition check before any install work.
func (s *Store) Create(v Version) (string, error) {
	if err := v.Validate(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(s.root, 0755); err != nil {
		return "", fmt.Errorf("failed to create root %s: %w", s.root, err)
	}

	dir := s.Path(v)
	// Mkdir (not MkdirAll) so a concurrent create of the same version fails.
	if err := os.Mkdir(dir, 0755); err != nil {
		if errors.Is(err, os.ErrExist) {
			return "", fmt.Errorf("%s: %w", v, ErrAlreadyExists)
		}
		return "", fmt.Errorf("failed to create version directory %s: %w", dir, err)
	}
	return dir, nil
}

// Remove deletes v's directory recursively.
func (s *Store) Remove(v Version) error {
	ok, err := s.Exists(v)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%s: %w", v, ErrNotFound)
	}
	if err := os.RemoveAll(s.Path(v)); err != nil {
		return fmt.Errorf("failed to remove version %s: %w", v, err)
	}
	return nil
}

// List returns the installed versions in filesystem enumeration order.
// The order is not guaranteed to be sorted; use SortVersions when a stable
// order is needed. The pointer file, temp files and other non-directory
// entries are skipped. A missing root yields an empty list.
func (s *Store) List() ([]Version, error) {
	f, err := os.Open(s.root)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []Version{}, nil
		}
		return nil, fmt.Errorf("failed to open root %s: %w", s.root, err)
	}
	defer f.Close()

	// ReadDir on the handle keeps directory order; os.ReadDir would sort.
	entries, err := f.ReadDir(-1)
	if err != nil {
		return nil, fmt.Errorf("failed to read root %s: %w", s.root, err)
	}

	versions := make([]Version, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if name == PointerFileName || strings.HasPrefix(name, fsutil.TempPrefix) {
			continue
		}
		if !e.IsDir() {
			continue
		}
		versions = append(versions, Version(name))
	}
	return versions, nil
}

// SortVersions orders versions ascending by semantic version. Identifiers
// that are not valid semver sort after valid ones, by plain string order.
func SortVersions(versions []Version) {
	sort.SliceStable(versions, func(i, j int) bool {
		return compareVersions(versions[i], versions[j]) < 0
	})
}

func compareVersions(a, b Version) int {
	sa, sb := canonical(a), canonical(b)
	va, vb := semver.IsValid(sa), semver.IsValid(sb)
	switch {
	case va && vb:
		if c := semver.Compare(sa, sb); c != 0 {
			return c
		}
	case va:
		return -1
	case vb:
		return 1
	}
	return strings.Compare(string(a), string(b))
}

func canonical(v Version) string {
	s := string(v)
	if !strings.HasPrefix(s, "v") {
		s = "v" + s
	}
	return s
}
