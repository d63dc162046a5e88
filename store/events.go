package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/metrorail/docflow/dbopen"
	"github.com/metrorail/docflow/idgen"
)

// Event is one row in the per-document processing audit trail.
type Event struct {
	ID         string `json:"id"`
	DocumentID string `json:"document_id"`
	Stage      string `json:"stage"`  // e.g. "detect", "extract", "classify", "store"
	Status     string `json:"status"` // "success" or "error"
	Detail     string `json:"detail,omitempty"`
	CreatedAt  string `json:"created_at"`
}

// EventLogger records processing events. It shares the Store's database.
type EventLogger struct {
	db    *sql.DB
	newID idgen.Generator
}

// NewEventLogger creates an event logger over the given database.
func NewEventLogger(db *sql.DB) *EventLogger {
	return &EventLogger{db: db, newID: idgen.Prefixed("evt_", idgen.Default)}
}

// Log inserts a processing event. Zero ID and timestamp are filled in.
func (l *EventLogger) Log(ctx context.Context, e *Event) error {
	if e.ID == "" {
		e.ID = l.newID()
	}
	if e.CreatedAt == "" {
		e.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	}
	if e.Status == "" {
		e.Status = "success"
	}
	_, err := dbopen.Exec(ctx, l.db,
		`INSERT INTO processing_events (id, document_id, stage, status, detail, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		e.ID, e.DocumentID, e.Stage, e.Status, e.Detail, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("store: log event %s/%s: %w", e.DocumentID, e.Stage, err)
	}
	return nil
}

// Record logs an event and only warns on failure. The audit trail must
// never block or fail document processing.
func (l *EventLogger) Record(ctx context.Context, docID, stage, status, detail string) {
	err := l.Log(ctx, &Event{DocumentID: docID, Stage: stage, Status: status, Detail: detail})
	if err != nil {
		slog.Warn("processing event not recorded", "document_id", docID, "stage", stage, "error", err)
	}
}

// Events returns the processing trail for a document, oldest first.
func (l *EventLogger) Events(ctx context.Context, docID string) ([]*Event, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT id, document_id, stage, status, detail, created_at
		 FROM processing_events WHERE document_id = ? ORDER BY created_at, id`, docID)
	if err != nil {
		return nil, fmt.Errorf("store: events for %s: %w", docID, err)
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		e := &Event{}
		if err := rows.Scan(&e.ID, &e.DocumentID, &e.Stage, &e.Status, &e.Detail, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("store: scan event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
