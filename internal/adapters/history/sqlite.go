// Package history persists accepted calls in a local SQLite file.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dkeye/Speak/internal/core"
	"github.com/dkeye/Speak/internal/domain"
	_ "modernc.org/sqlite"
)

// Store implements core.CallHistory on SQLite. The pure-Go driver keeps the
// build cgo-free.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database file and applies the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode so the HTTP read path does not block the insert path.
	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply pragma: %w", err)
		}
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS calls (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		caller_id  TEXT NOT NULL,
		callee_id  TEXT NOT NULL,
		created_at INTEGER NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Insert(ctx context.Context, caller, callee domain.UserID, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO calls (caller_id, callee_id, created_at) VALUES (?, ?, ?)`,
		string(caller), string(callee), at.Unix())
	if err != nil {
		return fmt.Errorf("insert call: %w", err)
	}
	return nil
}

// RecentForUser returns the user's most recent calls, newest first.
func (s *Store) RecentForUser(ctx context.Context, user domain.UserID, limit int) ([]core.CallRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, caller_id, callee_id, created_at
		 FROM calls
		 WHERE caller_id = ? OR callee_id = ?
		 ORDER BY created_at DESC, id DESC
		 LIMIT ?`,
		string(user), string(user), limit)
	if err != nil {
		return nil, fmt.Errorf("query calls: %w", err)
	}
	defer rows.Close()

	var out []core.CallRecord
	for rows.Next() {
		var (
			rec  core.CallRecord
			unix int64
		)
		if err := rows.Scan(&rec.ID, &rec.CallerID, &rec.CalleeID, &unix); err != nil {
			return nil, fmt.Errorf("scan call: %w", err)
		}
		rec.CreatedAt = time.Unix(unix, 0)
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *Store) Close() error {
	return s.db.Close()
}
