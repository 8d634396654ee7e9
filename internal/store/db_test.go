package store

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// newTestStore creates an in-memory store with the schema applied.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	if err := s.CreateSchema(); err != nil {
		t.Fatalf("CreateSchema() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// TestListEvents_NoSchema_ReturnsErrNotInitialized verifies that querying a
// fresh DB without CreateSchema reports ErrNotInitialized.
func TestListEvents_NoSchema_ReturnsErrNotInitialized(t *testing.T) {
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	defer s.Close()

	_, err = s.ListEvents(0)
	if !errors.Is(err, ErrNotInitialized) {
		t.Errorf("ListEvents() error = %v; want ErrNotInitialized", err)
	}

	_, err = s.LastEvent("1.0.0", ActionAdd)
	if !errors.Is(err, ErrNotInitialized) {
		t.Errorf("LastEvent() error = %v; want ErrNotInitialized", err)
	}
}

func TestErrNotInitialized_ErrorMessage(t *testing.T) {
	if !strings.Contains(ErrNotInitialized.Error(), "bvm add") {
		t.Errorf("ErrNotInitialized message %q should mention 'bvm add'", ErrNotInitialized.Error())
	}
}

func TestInsertAndListEvents(t *testing.T) {
	s := newTestStore(t)
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	events := []*Event{
		{Version: "1.0.0", Action: ActionAdd, Timestamp: base},
		{Version: "1.0.0", Action: ActionSwitch, Timestamp: base.Add(time.Minute)},
		{Version: "1.1.0", Action: ActionAdd, Detail: "payload moved", Timestamp: base.Add(2 * time.Minute)},
	}
	for _, ev := range events {
		if _, err := s.InsertEvent(ev); err != nil {
			t.Fatalf("InsertEvent() error = %v", err)
		}
	}

	got, err := s.ListEvents(0)
	if err != nil {
		t.Fatalf("ListEvents() error = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("len(events) = %d, want 3", len(got))
	}
	if got[0].Version != "1.1.0" || got[0].Detail != "payload moved" {
		t.Errorf("newest event = %+v", got[0])
	}
	if !got[2].Timestamp.Equal(base) {
		t.Errorf("oldest timestamp = %v, want %v", got[2].Timestamp, base)
	}

	limited, err := s.ListEvents(1)
	if err != nil {
		t.Fatalf("ListEvents(1) error = %v", err)
	}
	if len(limited) != 1 {
		t.Errorf("len(limited) = %d, want 1", len(limited))
	}

	count, err := s.GetEventCount()
	if err != nil {
		t.Fatalf("GetEventCount() error = %v", err)
	}
	if count != 3 {
		t.Errorf("count = %d, want 3", count)
	}
}

func TestLastEvent(t *testing.T) {
	s := newTestStore(t)
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	ev, err := s.LastEvent("1.0.0", ActionAdd)
	if err != nil {
		t.Fatalf("LastEvent() error = %v", err)
	}
	if ev != nil {
		t.Errorf("expected nil event, got %+v", ev)
	}

	s.InsertEvent(&Event{Version: "1.0.0", Action: ActionAdd, Timestamp: base})
	s.InsertEvent(&Event{Version: "1.0.0", Action: ActionDelete, Timestamp: base.Add(time.Hour)})
	s.InsertEvent(&Event{Version: "1.0.0", Action: ActionAdd, Timestamp: base.Add(2 * time.Hour)})

	ev, err = s.LastEvent("1.0.0", ActionAdd)
	if err != nil {
		t.Fatalf("LastEvent() error = %v", err)
	}
	if ev == nil || !ev.Timestamp.Equal(base.Add(2*time.Hour)) {
		t.Errorf("LastEvent() = %+v, want re-add timestamp", ev)
	}
}

func TestInstallTimes(t *testing.T) {
	s := newTestStore(t)
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	s.InsertEvent(&Event{Version: "1.0.0", Action: ActionAdd, Timestamp: base})
	s.InsertEvent(&Event{Version: "1.1.0", Action: ActionAdd, Timestamp: base.Add(time.Hour)})
	s.InsertEvent(&Event{Version: "1.1.0", Action: ActionSwitch, Timestamp: base.Add(3 * time.Hour)})

	times, err := s.InstallTimes()
	if err != nil {
		t.Fatalf("InstallTimes() error = %v", err)
	}
	if len(times) != 2 {
		t.Fatalf("len(times) = %d, want 2", len(times))
	}
	if !times["1.1.0"].Equal(base.Add(time.Hour)) {
		t.Errorf("install time of 1.1.0 = %v, switch events must not count", times["1.1.0"])
	}
}

func TestOpen_CreatesFileAndSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "bvm", "history.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if _, err := s.InsertEvent(&Event{Version: "1.0.0", Action: ActionAdd}); err != nil {
		t.Fatalf("InsertEvent() error = %v", err)
	}
	s.Close()

	s, err = Open(path)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer s.Close()
	count, err := s.GetEventCount()
	if err != nil || count != 1 {
		t.Errorf("count after reopen = %d, %v; want 1", count, err)
	}
}
