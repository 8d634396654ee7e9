package store

import (
	"database/sql"
	"fmt"
	"time"
)

// timeLayout is fixed width so timestamps sort correctly as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// InsertEvent appends an event. A zero Timestamp is replaced by now.
func (s *Store) InsertEvent(ev *Event) (int64, error) {
	ts := ev.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	query := `
		INSERT INTO events (version, action, detail, timestamp)
		VALUES (?, ?, ?, ?)
	`
	result, err := s.db.Exec(query, ev.Version, string(ev.Action), ev.Detail, ts.UTC().Format(timeLayout))
	if err != nil {
		return 0, wrapQueryErr(fmt.Sprintf("failed to insert %s event for %s", ev.Action, ev.Version), err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get event ID: %w", err)
	}
	return id, nil
}

// ListEvents returns events newest first. limit <= 0 means no limit.
func (s *Store) ListEvents(limit int) ([]*Event, error) {
	query := `
		SELECT id, version, action, COALESCE(detail, ''), timestamp
		FROM events
		ORDER BY timestamp DESC, id DESC
	`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, wrapQueryErr("failed to list events", err)
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating events: %w", err)
	}
	return events, nil
}

// LastEvent returns the most recent event of action for version, or nil.
func (s *Store) LastEvent(version string, action Action) (*Event, error) {
	query := `
		SELECT id, version, action, COALESCE(detail, ''), timestamp
		FROM events
		WHERE version = ? AND action = ?
		ORDER BY timestamp DESC, id DESC
		LIMIT 1
	`
	ev, err := scanEvent(s.db.QueryRow(query, version, string(action)))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, wrapQueryErr(fmt.Sprintf("failed to get last %s event for %s", action, version), err)
	}
	return ev, nil
}

// InstallTimes returns the time of the latest add event per version.
func (s *Store) InstallTimes() (map[string]time.Time, error) {
	query := `
		SELECT version, MAX(timestamp)
		FROM events
		WHERE action = ?
		GROUP BY version
	`
	rows, err := s.db.Query(query, string(ActionAdd))
	if err != nil {
		return nil, wrapQueryErr("failed to query install times", err)
	}
	defer rows.Close()

	times := make(map[string]time.Time)
	for rows.Next() {
		var version, ts string
		if err := rows.Scan(&version, &ts); err != nil {
			return nil, fmt.Errorf("failed to scan install time: %w", err)
		}
		t, err := time.Parse(timeLayout, ts)
		if err != nil {
			return nil, fmt.Errorf("failed to parse timestamp for %s: %w", version, err)
		}
		times[version] = t
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating install times: %w", err)
	}
	return times, nil
}

// GetEventCount returns the total number of recorded events.
func (s *Store) GetEventCount() (int, error) {
	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM events").Scan(&count); err != nil {
		return 0, wrapQueryErr("failed to count events", err)
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (*Event, error) {
	var ev Event
	var action, ts string
	if err := row.Scan(&ev.ID, &ev.Version, &action, &ev.Detail, &ts); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan event row: %w", err)
	}
	ev.Action = Action(action)

	t, err := time.Parse(timeLayout, ts)
	if err != nil {
		return nil, fmt.Errorf("failed to parse timestamp for event %d: %w", ev.ID, err)
	}
	ev.Timestamp = t
	return &ev, nil
}
