// CLAUDE:SUMMARY SQLite persistence for processed documents — save, search, stats, processing events.
// Package store persists processed documents and their extraction results
// in SQLite. One row per document: extracted text, metadata JSON, routing
// outcome and processing status. A companion processing_events table keeps
// a per-document audit trail.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/metrorail/docflow/dbopen"
	"github.com/metrorail/docflow/idgen"
)

// Processing status values for a stored document.
const (
	StatusProcessed = "PROCESSED" // extraction succeeded
	StatusPartial   = "PARTIAL"   // extraction failed but partial text survived
	StatusError     = "ERROR"     // extraction failed with nothing usable
)

const ddl = `
CREATE TABLE IF NOT EXISTS documents (
    id              TEXT PRIMARY KEY,
    filename        TEXT NOT NULL,
    path            TEXT NOT NULL,
    file_type       TEXT NOT NULL,
    mime            TEXT,
    channel         TEXT NOT NULL DEFAULT 'folder',
    department      TEXT NOT NULL DEFAULT 'GENERAL',
    confidence      REAL NOT NULL DEFAULT 0,
    extracted_text  TEXT NOT NULL DEFAULT '',
    metadata        TEXT NOT NULL DEFAULT '{}',
    status          TEXT NOT NULL,
    error           TEXT NOT NULL DEFAULT '',
    created_at      TEXT NOT NULL,
    updated_at      TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS processing_events (
    id              TEXT PRIMARY KEY,
    document_id     TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
    stage           TEXT NOT NULL,
    status          TEXT NOT NULL,
    detail          TEXT NOT NULL DEFAULT '',
    created_at      TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_documents_status     ON documents(status);
CREATE INDEX IF NOT EXISTS idx_documents_department ON documents(department);
CREATE INDEX IF NOT EXISTS idx_documents_channel    ON documents(channel);
CREATE INDEX IF NOT EXISTS idx_events_document      ON processing_events(document_id);
`

// Document is one processed-document row.
type Document struct {
	ID         string         `json:"id"`
	Filename   string         `json:"filename"`
	Path       string         `json:"path"`
	FileType   string         `json:"file_type"`
	MIME       string         `json:"mime,omitempty"`
	Channel    string         `json:"channel"`
	Department string         `json:"department"`
	Confidence float64        `json:"confidence"`
	Text       string         `json:"extracted_text,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Status     string         `json:"status"`
	Error      string         `json:"error,omitempty"`
	CreatedAt  string         `json:"created_at"`
	UpdatedAt  string         `json:"updated_at"`
}

// Store wraps an SQLite database holding processed documents.
type Store struct {
	db    *sql.DB
	newID idgen.Generator
}

// Open opens (or creates) the document database at path and runs migrations.
// Parent directories are created as needed.
func Open(path string) (*Store, error) {
	db, err := dbopen.Open(path, dbopen.WithMkdirAll(), dbopen.WithSchema(ddl))
	if err != nil {
		return nil, fmt.Errorf("store: %w", err)
	}
	return New(db), nil
}

// New wraps an already-open database. The caller is responsible for having
// applied Schema (dbopen.WithSchema(store.Schema())) and for closing db.
func New(db *sql.DB) *Store {
	return &Store{db: db, newID: idgen.Prefixed("doc_", idgen.Default)}
}

// Schema returns the DDL for the documents and processing_events tables,
// for callers that open the database themselves.
func Schema() string { return ddl }

// DB returns the underlying *sql.DB for sharing with the event logger.
func (s *Store) DB() *sql.DB { return s.db }

// Close closes the underlying database connection.
func (s *Store) Close() error { return s.db.Close() }

// Save inserts the document and returns its assigned ID. A zero ID is
// filled in with a doc_-prefixed UUIDv7; timestamps are set if empty.
func (s *Store) Save(ctx context.Context, d *Document) (string, error) {
	if d.ID == "" {
		d.ID = s.newID()
	}
	now := time.Now().UTC().Format(time.RFC3339)
	if d.CreatedAt == "" {
		d.CreatedAt = now
	}
	d.UpdatedAt = now

	meta := "{}"
	if d.Metadata != nil {
		b, err := json.Marshal(d.Metadata)
		if err != nil {
			return "", fmt.Errorf("store: marshal metadata: %w", err)
		}
		meta = string(b)
	}

	err := dbopen.RunTx(ctx, s.db, func(tx *sql.Tx) error {
		_, err := tx.Exec(
			`INSERT INTO documents (id, filename, path, file_type, mime, channel, department, confidence, extracted_text, metadata, status, error, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			d.ID, d.Filename, d.Path, d.FileType, d.MIME, d.Channel, d.Department,
			d.Confidence, d.Text, meta, d.Status, d.Error, d.CreatedAt, d.UpdatedAt,
		)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("store: save %s: %w", d.Filename, err)
	}
	return d.ID, nil
}

// Get returns a document by ID. Returns nil, nil if not found.
func (s *Store) Get(ctx context.Context, id string) (*Document, error) {
	d, err := scanDocument(s.db.QueryRowContext(ctx,
		`SELECT id, filename, path, file_type, mime, channel, department, confidence, extracted_text, metadata, status, error, created_at, updated_at
		 FROM documents WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return d, err
}

// Filter narrows Search results. Zero fields are ignored.
type Filter struct {
	Query      string // substring match on filename and extracted text
	Department string
	FileType   string
	Channel    string
	Status     string
	Limit      int // default 50
}

// Search returns documents matching the filter, newest first.
func (s *Store) Search(ctx context.Context, f Filter) ([]*Document, error) {
	q := `SELECT id, filename, path, file_type, mime, channel, department, confidence, extracted_text, metadata, status, error, created_at, updated_at
		FROM documents WHERE 1=1`
	var args []any

	if f.Query != "" {
		q += " AND (filename LIKE ? OR extracted_text LIKE ?)"
		pat := "%" + f.Query + "%"
		args = append(args, pat, pat)
	}
	if f.Department != "" {
		q += " AND department = ?"
		args = append(args, f.Department)
	}
	if f.FileType != "" {
		q += " AND file_type = ?"
		args = append(args, f.FileType)
	}
	if f.Channel != "" {
		q += " AND channel = ?"
		args = append(args, f.Channel)
	}
	if f.Status != "" {
		q += " AND status = ?"
		args = append(args, f.Status)
	}

	limit := 50
	if f.Limit > 0 {
		limit = f.Limit
	}
	q += " ORDER BY created_at DESC, id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("store: search: %w", err)
	}
	defer rows.Close()

	var docs []*Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("store: search scan: %w", err)
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// Stats summarizes the document corpus.
type Stats struct {
	Total        int            `json:"total"`
	ByStatus     map[string]int `json:"by_status"`
	ByDepartment map[string]int `json:"by_department"`
	ByChannel    map[string]int `json:"by_channel"`
}

// Stats returns document counts grouped by status, department and channel.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	st := &Stats{
		ByStatus:     map[string]int{},
		ByDepartment: map[string]int{},
		ByChannel:    map[string]int{},
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&st.Total); err != nil {
		return nil, fmt.Errorf("store: stats total: %w", err)
	}
	for col, dest := range map[string]map[string]int{
		"status":     st.ByStatus,
		"department": st.ByDepartment,
		"channel":    st.ByChannel,
	} {
		if err := s.countBy(ctx, col, dest); err != nil {
			return nil, err
		}
	}
	return st, nil
}

func (s *Store) countBy(ctx context.Context, column string, dest map[string]int) error {
	// column comes from a fixed call-site set, never user input.
	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT %s, COUNT(*) FROM documents GROUP BY %s`, column, column))
	if err != nil {
		return fmt.Errorf("store: stats by %s: %w", column, err)
	}
	defer rows.Close()
	for rows.Next() {
		var key string
		var n int
		if err := rows.Scan(&key, &n); err != nil {
			return fmt.Errorf("store: stats scan: %w", err)
		}
		dest[key] = n
	}
	return rows.Err()
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(row scanner) (*Document, error) {
	d := &Document{}
	var mime sql.NullString
	var meta string
	if err := row.Scan(&d.ID, &d.Filename, &d.Path, &d.FileType, &mime, &d.Channel,
		&d.Department, &d.Confidence, &d.Text, &meta, &d.Status, &d.Error,
		&d.CreatedAt, &d.UpdatedAt); err != nil {
		return nil, err
	}
	if mime.Valid {
		d.MIME = mime.String
	}
	if strings.TrimSpace(meta) != "" && meta != "{}" {
		if err := json.Unmarshal([]byte(meta), &d.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal metadata for %s: %w", d.ID, err)
		}
	}
	return d, nil
}
