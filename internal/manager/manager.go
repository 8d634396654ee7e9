// Package manager sequences the registry, installer, shell patcher and
// history into the add, delete, switch and list operations.
package manager

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/blackwell-systems/bvm/internal/registry"
	"github.com/blackwell-systems/bvm/internal/shell"
	"github.com/blackwell-systems/bvm/internal/store"
)

// Installer runs the external install step.
type Installer interface {
	Install(ctx context.Context, version, dir string) error
	MovePayload(dir string) (string, error)
}

// Patcher rewrites a shell startup file.
type Patcher interface {
	Patch(f shell.Family) (shell.Result, error)
}

// History records registry changes.
type History interface {
	InsertEvent(ev *store.Event) (int64, error)
	InstallTimes() (map[string]time.Time, error)
}

// Options wires a Manager. History and Logger are optional.
type Options struct {
	Store     *registry.Store
	Pointer   *registry.Pointer
	Installer Installer
	Patcher   Patcher
	Family    shell.Family
	History   History
	Logger    *slog.Logger
}

// Manager implements the user-facing operations.
type Manager struct {
	store     *registry.Store
	pointer   *registry.Pointer
	installer Installer
	patcher   Patcher
	family    shell.Family
	history   History
	logger    *slog.Logger
}

// New creates a Manager.
func New(opts Options) *Manager {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	pointer := opts.Pointer
	if pointer == nil && opts.Store != nil {
		pointer = registry.NewPointer(opts.Store)
	}
	return &Manager{
		store:     opts.Store,
		pointer:   pointer,
		installer: opts.Installer,
		patcher:   opts.Patcher,
		family:    opts.Family,
		history:   opts.History,
		logger:    logger,
	}
}

// AddResult describes a completed add.
type AddResult struct {
	Version registry.Version
	Dir     string
	Payload string
	Shell   shell.Result
	// ShellRefresh is set when a new shell session is needed to pick up the
	// change. bvm never replaces the running shell itself.
	ShellRefresh bool
}

// Add installs version and makes it active.
//
// The steps run in order: create the version directory, run the installer,
// move the payload, patch the startup file, set the pointer. A failing step
// stops the sequence and nothing is rolled back, so an install failure leaves
// an empty version directory and a late failure leaves an installed version
// that is not active.
func (m *Manager) Add(ctx context.Context, version registry.Version) (*AddResult, error) {
	if m.installer == nil {
		return nil, errors.New("add: no installer configured")
	}

	dir, err := m.store.Create(version)
	if err != nil {
		return nil, err
	}
	m.logger.Debug("created version directory", "version", version, "dir", dir)

	if err := m.installer.Install(ctx, string(version), dir); err != nil {
		m.logger.Warn("install failed; version directory left in place", "version", version, "dir", dir)
		return nil, err
	}

	payload, err := m.installer.MovePayload(dir)
	if err != nil {
		return nil, fmt.Errorf("add %s: %w", version, err)
	}

	res := &AddResult{Version: version, Dir: dir, Payload: payload}

	if m.patcher != nil {
		sr, err := m.patcher.Patch(m.family)
		if err != nil {
			return nil, fmt.Errorf("add %s: %w", version, err)
		}
		res.Shell = sr
		m.logger.Debug("patched shell config", "family", sr.Family, "file", sr.File,
			"skipped", sr.Skipped, "removed", sr.Removed, "block_added", sr.BlockAdded)
	}

	if err := m.pointer.Set(version); err != nil {
		return nil, fmt.Errorf("add %s: %w", version, err)
	}
	res.ShellRefresh = true

	m.record(version, store.ActionAdd, payload)
	m.record(version, store.ActionSwitch, "")
	return res, nil
}

// DeleteResult describes a completed delete.
type DeleteResult struct {
	Version   registry.Version
	WasActive bool
}

// Delete removes version. When it was the active version the pointer is
// cleared, so the shell block stops adding a path that no longer exists.
func (m *Manager) Delete(version registry.Version) (*DeleteResult, error) {
	active, ok, err := m.pointer.Version()
	if err != nil {
		return nil, err
	}

	if err := m.store.Remove(version); err != nil {
		return nil, err
	}

	res := &DeleteResult{Version: version, WasActive: ok && active == version}
	if res.WasActive {
		if err := m.pointer.Clear(); err != nil {
			return res, err
		}
	}

	m.record(version, store.ActionDelete, "")
	return res, nil
}

// Switch makes an installed version active. An unknown version yields
// registry.ErrNotFound and leaves the pointer as it was.
func (m *Manager) Switch(version registry.Version) error {
	if err := m.pointer.Set(version); err != nil {
		return err
	}
	m.record(version, store.ActionSwitch, "")
	return nil
}

// Current returns the active version.
func (m *Manager) Current() (registry.Version, bool, error) {
	return m.pointer.Version()
}

// Installed is one entry of List.
type Installed struct {
	Version     registry.Version `json:"version"`
	Path        string           `json:"path"`
	Active      bool             `json:"active"`
	InstalledAt time.Time        `json:"installed_at,omitempty"`
	SizeBytes   int64            `json:"size_bytes"`
}

// List returns installed versions in ascending version order.
func (m *Manager) List() ([]Installed, error) {
	versions, err := m.store.List()
	if err != nil {
		return nil, err
	}
	registry.SortVersions(versions)

	active, hasActive, err := m.pointer.Version()
	if err != nil {
		return nil, err
	}

	var times map[string]time.Time
	if m.history != nil {
		times, err = m.history.InstallTimes()
		if err != nil {
			m.logger.Warn("install history unavailable", "error", err)
		}
	}

	out := make([]Installed, 0, len(versions))
	for _, v := range versions {
		path := m.store.Path(v)
		out = append(out, Installed{
			Version:     v,
			Path:        path,
			Active:      hasActive && v == active,
			InstalledAt: times[string(v)],
			SizeBytes:   dirSize(path),
		})
	}
	return out, nil
}

// record writes to the history. Failures are logged, never returned: the
// history is an audit trail and must not fail an operation that succeeded.
func (m *Manager) record(version registry.Version, action store.Action, detail string) {
	if m.history == nil {
		return
	}
	if _, err := m.history.InsertEvent(&store.Event{
		Version: string(version),
		Action:  action,
		Detail:  detail,
	}); err != nil {
		m.logger.Warn("failed to record history", "version", version, "action", action, "error", err)
	}
}

func dirSize(root string) int64 {
	var total int64
	filepath.WalkDir(root, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.Type().IsRegular() {
			if info, err := d.Info(); err == nil {
				total += info.Size()
			}
		}
		return nil
	})
	return total
}
