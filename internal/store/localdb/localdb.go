package localdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// DB wraps the client's SQLite file: persisted session keys plus the local
// activity log.
type DB struct{ sql *sql.DB }

func Open(path string) (*DB, error) {
	d, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// :memory: databases are per connection
	d.SetMaxOpenConns(1)
	if _, err := d.Exec(`PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL;`); err != nil {
		_ = d.Close()
		return nil, err
	}
	db := &DB{sql: d}
	if err := db.migrate(); err != nil {
		_ = d.Close()
		return nil, err
	}
	return db, nil
}

func (d *DB) Close() error { return d.sql.Close() }

func (d *DB) migrate() error {
	_, err := d.sql.Exec(`
	CREATE TABLE IF NOT EXISTS metadata (
	  key   TEXT PRIMARY KEY,
	  value BLOB NOT NULL
	);
	CREATE TABLE IF NOT EXISTS events (
	  id INTEGER PRIMARY KEY AUTOINCREMENT,
	  ts INTEGER NOT NULL,
	  type TEXT NOT NULL,
	  target TEXT NOT NULL DEFAULT '',
	  payload TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_events_ts ON events(ts);
	`)
	return err
}

// Get returns (nil, nil) when key is absent.
func (d *DB) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := d.sql.QueryRowContext(ctx, `SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get metadata[%s]: %w", key, err)
	}
	return value, nil
}

func (d *DB) Set(ctx context.Context, key string, value []byte) error {
	_, err := d.sql.ExecContext(ctx, `
		INSERT INTO metadata (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("failed to set metadata[%s]: %w", key, err)
	}
	return nil
}

func (d *DB) Delete(ctx context.Context, key string) error {
	if _, err := d.sql.ExecContext(ctx, `DELETE FROM metadata WHERE key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete metadata[%s]: %w", key, err)
	}
	return nil
}

// PutEvent stores an activity event.
func (d *DB) PutEvent(ctx context.Context, ts time.Time, typ, target string, payload any) error {
	var pstr *string
	if payload != nil {
		pb, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		ps := string(pb)
		pstr = &ps
	}
	_, err := d.sql.ExecContext(ctx, `INSERT INTO events(ts, type, target, payload) VALUES(?,?,?,?)`, ts.UnixNano(), typ, target, pstr)
	return err
}

// Event is a stored activity event
type Event struct {
	TS      time.Time
	Type    string
	Target  string
	Payload string
}

// LoadEventsRange returns events in [start, end), optionally filtered by type.
func (d *DB) LoadEventsRange(ctx context.Context, start, end time.Time, typ string) ([]Event, error) {
	q := `SELECT ts, type, target, COALESCE(payload, '') FROM events WHERE ts>=? AND ts<?`
	args := []any{start.UnixNano(), end.UnixNano()}
	if typ != "" {
		q += ` AND type=?`
		args = append(args, typ)
	}
	rows, err := d.sql.QueryContext(ctx, q+` ORDER BY ts`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Event
	for rows.Next() {
		var ts int64
		var e Event
		if err := rows.Scan(&ts, &e.Type, &e.Target, &e.Payload); err != nil {
			return nil, err
		}
		e.TS = time.Unix(0, ts).UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}
