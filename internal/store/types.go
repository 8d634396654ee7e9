package store

import "time"

// Action is the kind of registry change an event records.
type Action string

const (
	ActionAdd    Action = "add"
	ActionDelete Action = "delete"
	ActionSwitch Action = "switch"
)

// Event records one successful registry change.
type Event struct {
	ID        int64     `json:"id"`
	Version   string    `json:"version"`
	Action    Action    `json:"action"`
	Detail    string    `json:"detail,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
