// Package store persists the analyst activity log.
package store

import (
	"context"
	"time"
)

// EventKind classifies an activity-log entry.
type EventKind string

const (
	// EventUpload records a successful dataset upload.
	EventUpload EventKind = "upload"
	// EventFilter records a filter submission.
	EventFilter EventKind = "filter"
	// EventExport records a spreadsheet download.
	EventExport EventKind = "export"
)

// Event is one activity-log entry. Datasets themselves are never persisted;
// only metadata about what the analyst did.
type Event struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Kind      EventKind `json:"kind"`
	Filename  string    `json:"filename,omitempty"`
	RowsIn    int       `json:"rows_in"`
	RowsOut   int       `json:"rows_out"`
	Spec      string    `json:"spec,omitempty"` // filter spec as JSON
	CreatedAt time.Time `json:"created_at"`
}

// Query specifies criteria for listing events.
type Query struct {
	SessionID string    `json:"session_id,omitempty"`
	Kind      EventKind `json:"kind,omitempty"`
	Limit     int       `json:"limit,omitempty"`
}

// Store defines the persistence interface for the activity log.
type Store interface {
	RecordEvent(ctx context.Context, event Event) (*Event, error)
	ListEvents(ctx context.Context, q Query) ([]Event, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Nop is a Store that discards everything, for store.driver "none".
type Nop struct{}

func (Nop) RecordEvent(_ context.Context, event Event) (*Event, error) { return &event, nil }
func (Nop) ListEvents(_ context.Context, _ Query) ([]Event, error)     { return nil, nil }
func (Nop) Migrate(_ context.Context) error                            { return nil }
func (Nop) Close() error                                               { return nil }
