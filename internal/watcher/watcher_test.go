package watcher

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/blackwell-systems/bvm/internal/registry"
)

func setupPointer(t *testing.T, versions ...registry.Version) (*registry.Store, *registry.Pointer) {
	t.Helper()
	st := registry.NewStore(filepath.Join(t.TempDir(), "bvm"))
	for _, v := range versions {
		if _, err := st.Create(v); err != nil {
			t.Fatalf("Create(%s): %v", v, err)
		}
	}
	return st, registry.NewPointer(st)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func waitChange(t *testing.T, w *Watcher) Change {
	t.Helper()
	select {
	case c, ok := <-w.Changes():
		if !ok {
			t.Fatal("change stream closed")
		}
		return c
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for change")
	}
	return Change{}
}

func TestNew_NilPointer(t *testing.T) {
	if _, err := New(nil, nil); err == nil {
		t.Error("New(nil) expected error, got nil")
	}
}

// TestWatcher_ReportsSwitches verifies that atomic pointer replacements are
// observed across several switches.
func TestWatcher_ReportsSwitches(t *testing.T) {
	_, ptr := setupPointer(t, "1.0.0", "1.1.0")
	if err := ptr.Set("1.0.0"); err != nil {
		t.Fatal(err)
	}

	w, err := New(ptr, quietLogger())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := w.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer w.Stop()

	if err := ptr.Set("1.1.0"); err != nil {
		t.Fatal(err)
	}
	if c := waitChange(t, w); c.Version != "1.1.0" || !c.Active {
		t.Errorf("first change = %+v, want 1.1.0 active", c)
	}

	if err := ptr.Set("1.0.0"); err != nil {
		t.Fatal(err)
	}
	if c := waitChange(t, w); c.Version != "1.0.0" {
		t.Errorf("second change = %+v, want 1.0.0", c)
	}

	if err := ptr.Clear(); err != nil {
		t.Fatal(err)
	}
	if c := waitChange(t, w); c.Active {
		t.Errorf("change after clear = %+v, want inactive", c)
	}
}

func TestWatcher_StopClosesStream(t *testing.T) {
	_, ptr := setupPointer(t, "1.0.0")

	w, err := New(ptr, quietLogger())
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := w.Stop(); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
	if err := w.Stop(); err != nil {
		t.Errorf("second Stop() error = %v", err)
	}

	select {
	case _, ok := <-w.Changes():
		if ok {
			t.Error("expected closed stream")
		}
	case <-time.After(time.Second):
		t.Error("stream not closed after Stop")
	}
}

func TestWatcher_StartFailsWithoutRoot(t *testing.T) {
	_, ptr := setupPointer(t)

	w, err := New(ptr, quietLogger())
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Start(); err == nil {
		w.Stop()
		t.Error("Start() should fail when the root does not exist")
	}
}
