package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/i474232898/datacycle/internal/cycle"
)

// SQLiteStore implements cycle.Store on a single SQLite file
// (modernc.org/sqlite driver, CGO-free). Use ":memory:" for a throwaway database.
type SQLiteStore struct {
	db *sql.DB
}

var _ cycle.Store = (*SQLiteStore)(nil)

// OpenSQLite opens the database at path and ensures the schema exists.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	p := strings.TrimSpace(path)
	if p == "" {
		return nil, errors.New("empty sqlite path")
	}
	db, err := sql.Open("sqlite", p)
	if err != nil {
		return nil, err
	}
	// Every pooled connection to ":memory:" would be its own database.
	db.SetMaxOpenConns(1)
	// busy timeout helps with short concurrent locks
	_, _ = db.ExecContext(ctx, "PRAGMA busy_timeout=3000;")

	s := &SQLiteStore{db: db}
	if err := s.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) ensureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS kv(
			key TEXT PRIMARY KEY,
			value BLOB NOT NULL,
			updated_at TIMESTAMP NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS launches(
			id TEXT PRIMARY KEY,
			first_seen_at TIMESTAMP NOT NULL,
			last_refreshed_at TIMESTAMP NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_launches_first_seen ON launches(first_seen_at);`,
	}
	for _, q := range stmts {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) Get(ctx context.Context, key string) ([]byte, error) {
	var v []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key=?;`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

func (s *SQLiteStore) Set(ctx context.Context, key string, value []byte) error {
	return s.SetBatch(ctx, map[string][]byte{key: value})
}

// SetBatch upserts all entries in one transaction.
func (s *SQLiteStore) SetBatch(ctx context.Context, entries map[string][]byte) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC()
	for k, v := range entries {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO kv(key, value, updated_at)
			VALUES(?, ?, ?)
			ON CONFLICT(key) DO UPDATE SET
				value=excluded.value,
				updated_at=excluded.updated_at;`,
			k, v, now)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) FirstLaunch(ctx context.Context) (cycle.LaunchRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, first_seen_at, last_refreshed_at
		FROM launches
		ORDER BY first_seen_at ASC
		LIMIT 1;`)
	if err != nil {
		return cycle.LaunchRecord{}, err
	}
	defer func() { _ = rows.Close() }()

	recs, err := scanLaunches(rows)
	if err != nil {
		return cycle.LaunchRecord{}, err
	}
	if len(recs) == 0 {
		return cycle.LaunchRecord{}, ErrNotFound
	}
	return recs[0], nil
}

func (s *SQLiteStore) InsertLaunch(ctx context.Context, rec cycle.LaunchRecord) error {
	var refreshed any
	if rec.LastRefreshedAt != nil {
		refreshed = rec.LastRefreshedAt.UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO launches(id, first_seen_at, last_refreshed_at)
		VALUES(?, ?, ?);`,
		rec.ID, rec.FirstSeenAt.UTC(), refreshed)
	return err
}

func (s *SQLiteStore) TouchLaunch(ctx context.Context, id string, refreshedAt time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE launches SET last_refreshed_at=? WHERE id=?;`,
		refreshedAt.UTC(), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) ListLaunches(ctx context.Context) ([]cycle.LaunchRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, first_seen_at, last_refreshed_at
		FROM launches
		ORDER BY first_seen_at ASC;`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	return scanLaunches(rows)
}

func scanLaunches(rows *sql.Rows) ([]cycle.LaunchRecord, error) {
	out := make([]cycle.LaunchRecord, 0)
	for rows.Next() {
		var (
			r         cycle.LaunchRecord
			refreshed sql.NullTime
		)
		if err := rows.Scan(&r.ID, &r.FirstSeenAt, &refreshed); err != nil {
			return nil, err
		}
		r.FirstSeenAt = r.FirstSeenAt.UTC()
		if refreshed.Valid {
			ts := refreshed.Time.UTC()
			r.LastRefreshedAt = &ts
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
