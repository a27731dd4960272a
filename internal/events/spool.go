package events

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/frnnnnn/Vision360/internal/pipeline"
)

// Spool is the on-disk holding area for events that could not reach any
// remote destination. Rows are replayed oldest first once the store is back.
type Spool struct {
	db *sql.DB
}

// SpooledEvent is one held event row.
type SpooledEvent struct {
	ID        string
	EventID   string
	Payload   []byte
	CreatedAt time.Time
}

// OpenSpool opens (or creates) the spool database and runs its migrations.
func OpenSpool(path string) (*Spool, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open spool: %w", err)
	}

	// WAL mode so replay reads do not block inserts
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	s := &Spool{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the spool database.
func (s *Spool) Close() error {
	return s.db.Close()
}

func (s *Spool) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS spooled_events (
			id TEXT PRIMARY KEY,
			event_id TEXT NOT NULL,
			payload TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_spool_created ON spooled_events(created_at)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return fmt.Errorf("spool migration failed: %w", err)
		}
	}
	return nil
}

// Insert holds one event for later replay.
func (s *Spool) Insert(ev *pipeline.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	_, err = s.db.Exec(
		`INSERT INTO spooled_events (id, event_id, payload) VALUES (?, ?, ?)`,
		uuid.NewString(), ev.ID, string(payload),
	)
	if err != nil {
		return fmt.Errorf("spool event: %w", err)
	}
	return nil
}

// Pending returns up to limit held events, oldest first.
func (s *Spool) Pending(limit int) ([]SpooledEvent, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.Query(
		`SELECT id, event_id, payload, created_at
		 FROM spooled_events ORDER BY created_at, rowid LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list spooled events: %w", err)
	}
	defer rows.Close()

	var held []SpooledEvent
	for rows.Next() {
		var row SpooledEvent
		var payload string
		if err := rows.Scan(&row.ID, &row.EventID, &payload, &row.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan spooled event: %w", err)
		}
		row.Payload = []byte(payload)
		held = append(held, row)
	}
	return held, rows.Err()
}

// Remove deletes one replayed row.
func (s *Spool) Remove(id string) error {
	_, err := s.db.Exec(`DELETE FROM spooled_events WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("remove spooled event: %w", err)
	}
	return nil
}

// Count returns the number of held events.
func (s *Spool) Count() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM spooled_events`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count spooled events: %w", err)
	}
	return n, nil
}
