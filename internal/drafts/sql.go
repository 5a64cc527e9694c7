package drafts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/onclick-pay/onclick-web/internal/platform/database"
)

const kvSchema = `CREATE TABLE IF NOT EXISTS kv_entries (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL,
	updated_at BIGINT NOT NULL
)`

const updateAttempts = 3

var errWriteConflict = errors.New("drafts: concurrent insert")

// SQLKV persists entries in a single table on sqlite or postgres.
type SQLKV struct {
	db  *database.DB
	now func() time.Time
}

// NewSQLKV ensures the schema exists.
func NewSQLKV(ctx context.Context, db *database.DB) (*SQLKV, error) {
	if db == nil {
		return nil, errors.New("drafts: database is required")
	}
	if _, err := db.ExecContext(ctx, kvSchema); err != nil {
		return nil, fmt.Errorf("drafts: create schema: %w", err)
	}
	return &SQLKV{db: db, now: time.Now}, nil
}

func (s *SQLKV) Get(ctx context.Context, key string) ([]byte, error) {
	var value string
	err := s.db.QueryRowContext(ctx, s.db.Rebind(`SELECT value FROM kv_entries WHERE key = ?`), key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return []byte(value), nil
}

func (s *SQLKV) Put(ctx context.Context, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx, s.db.Rebind(
		`INSERT INTO kv_entries (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`),
		key, string(value), s.now().UTC().UnixMilli(),
	)
	return err
}

// Update runs the read-modify-write in one transaction. A row inserted concurrently by
// another writer restarts the transaction so fn sees the committed value.
func (s *SQLKV) Update(ctx context.Context, key string, fn UpdateFunc) error {
	var err error
	for attempt := 0; attempt < updateAttempts; attempt++ {
		err = s.update(ctx, key, fn)
		if !errors.Is(err, errWriteConflict) {
			return err
		}
	}
	return err
}

func (s *SQLKV) update(ctx context.Context, key string, fn UpdateFunc) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("start transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query := `SELECT value FROM kv_entries WHERE key = ?`
	if s.db.Dialect == database.Postgres {
		query += ` FOR UPDATE`
	}
	var (
		value   string
		current []byte
	)
	err = tx.QueryRowContext(ctx, s.db.Rebind(query), key).Scan(&value)
	switch {
	case err == nil:
		current = []byte(value)
	case !errors.Is(err, sql.ErrNoRows):
		return err
	}

	next, err := fn(current)
	if err != nil {
		return err
	}
	now := s.now().UTC().UnixMilli()
	if current != nil {
		if _, err := tx.ExecContext(ctx, s.db.Rebind(`UPDATE kv_entries SET value = ?, updated_at = ? WHERE key = ?`), string(next), now, key); err != nil {
			return err
		}
	} else {
		res, err := tx.ExecContext(ctx, s.db.Rebind(
			`INSERT INTO kv_entries (key, value, updated_at) VALUES (?, ?, ?) ON CONFLICT(key) DO NOTHING`),
			key, string(next), now,
		)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return errWriteConflict
		}
	}
	return tx.Commit()
}

func (s *SQLKV) Close() error {
	return s.db.Close()
}
