// Package storage persists engine snapshots and a settlement audit log in a
// local sqlite database.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"tradepost/native/trade"
)

// Store wraps the sqlite handle. The snapshot table holds a single current
// row; the audit log is append-only.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and ensures the schema exists.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	store := &Store{db: db}
	if err := store.init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *Store) init() error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS snapshots (
            id INTEGER PRIMARY KEY CHECK (id = 1),
            taken_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
            body BLOB NOT NULL
        );`,
		`CREATE TABLE IF NOT EXISTS audit_log (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            occurred_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
            offer_id TEXT NOT NULL,
            creator TEXT NOT NULL,
            status TEXT NOT NULL,
            fee INTEGER NOT NULL,
            body BLOB NOT NULL
        );`,
		`CREATE INDEX IF NOT EXISTS idx_audit_offer ON audit_log(offer_id);`,
	}
	for _, stmt := range schema {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

// SaveSnapshot replaces the current snapshot row.
func (s *Store) SaveSnapshot(ctx context.Context, snap *trade.EngineSnapshot) error {
	if snap == nil {
		return errors.New("storage: nil snapshot")
	}
	body, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO snapshots (id, taken_at, body) VALUES (1, ?, ?)
         ON CONFLICT(id) DO UPDATE SET taken_at = excluded.taken_at, body = excluded.body`,
		time.Now().UTC(), body)
	return err
}

// LoadSnapshot returns the persisted snapshot, reporting whether one exists.
func (s *Store) LoadSnapshot(ctx context.Context) (*trade.EngineSnapshot, bool, error) {
	var body []byte
	err := s.db.QueryRowContext(ctx, `SELECT body FROM snapshots WHERE id = 1`).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	snap := &trade.EngineSnapshot{}
	if err := json.Unmarshal(body, snap); err != nil {
		return nil, false, fmt.Errorf("decode snapshot: %w", err)
	}
	return snap, true, nil
}

// AuditEntry is one resolved offer as recorded in the audit log.
type AuditEntry struct {
	OccurredAt time.Time    `json:"occurredAt"`
	Offer      *trade.Offer `json:"offer"`
}

// AppendAudit records a resolved offer. The full offer is stored as JSON next
// to the indexed columns.
func (s *Store) AppendAudit(ctx context.Context, offer *trade.Offer) error {
	if offer == nil {
		return errors.New("storage: nil offer")
	}
	body, err := json.Marshal(offer)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO audit_log (occurred_at, offer_id, creator, status, fee, body) VALUES (?, ?, ?, ?, ?, ?)`,
		time.Now().UTC(), offer.ID, offer.Creator, string(offer.Status), offer.Fee, body)
	return err
}

// AuditLog returns the most recent entries, newest first.
func (s *Store) AuditLog(ctx context.Context, limit int) ([]AuditEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT occurred_at, body FROM audit_log ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []AuditEntry
	for rows.Next() {
		var entry AuditEntry
		var body []byte
		if err := rows.Scan(&entry.OccurredAt, &body); err != nil {
			return nil, err
		}
		offer := &trade.Offer{}
		if err := json.Unmarshal(body, offer); err != nil {
			return nil, fmt.Errorf("decode audit row: %w", err)
		}
		entry.Offer = offer
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
