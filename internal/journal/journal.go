// Package journal keeps a sqlite audit trail of accepted webhook payloads.
package journal

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

const schema = `
CREATE TABLE IF NOT EXISTS ingest_log (
	id          TEXT PRIMARY KEY,
	received_at INTEGER NOT NULL,
	dialects    TEXT NOT NULL,
	body        TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_ingest_log_received_at ON ingest_log(received_at);
`

// Entry is one journalled payload.
type Entry struct {
	ID         string `json:"id"`
	ReceivedAt int64  `json:"received_at"`
	Dialects   string `json:"dialects"`
	Body       string `json:"body"`
}

// Store wraps the sqlite handle. Safe for concurrent use; database/sql
// serialises access.
type Store struct {
	db *sql.DB
}

// Open creates or opens the journal database and migrates the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate journal: %w", err)
	}
	return &Store{db: db}, nil
}

// Record appends one accepted payload. Satisfies markmon.IngestRecorder.
func (s *Store) Record(receivedAt time.Time, dialects []string, body []byte) error {
	_, err := s.db.Exec(
		`INSERT INTO ingest_log (id, received_at, dialects, body) VALUES (?, ?, ?, ?)`,
		uuid.NewString(), receivedAt.UnixMilli(), strings.Join(dialects, ","), string(body),
	)
	if err != nil {
		return fmt.Errorf("record payload: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (s *Store) Recent(limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(
		`SELECT id, received_at, dialects, body FROM ingest_log ORDER BY received_at DESC, id LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query journal: %w", err)
	}
	defer rows.Close()

	entries := make([]Entry, 0, limit)
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.ReceivedAt, &e.Dialects, &e.Body); err != nil {
			return nil, fmt.Errorf("scan journal row: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *Store) Close() error {
	return s.db.Close()
}
