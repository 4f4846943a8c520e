package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/nerrad567/garagedoor/internal/garage"
)

var _ garage.Store = (*SQLiteStore)(nil)

// SQLiteStore implements garage.Store on the kv_store table.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStore wraps an open, migrated database.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db, now: time.Now}
}

// GetString returns the value for key; ok is false when it is absent.
func (s *SQLiteStore) GetString(ctx context.Context, key string) (string, bool, error) {
	if key == "" {
		return "", false, ErrEmptyKey
	}
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv_store WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("reading %s: %w", key, err)
	}
	return value, true, nil
}

// SetString inserts or replaces the value for key.
func (s *SQLiteStore) SetString(ctx context.Context, key, value string) error {
	if key == "" {
		return ErrEmptyKey
	}
	const query = `INSERT INTO kv_store (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`
	if _, err := s.db.ExecContext(ctx, query, key, value, s.now().UTC().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("writing %s: %w", key, err)
	}
	return nil
}

// GetBool reads a boolean written by SetBool.
func (s *SQLiteStore) GetBool(ctx context.Context, key string) (bool, bool, error) {
	raw, ok, err := s.GetString(ctx, key)
	if err != nil || !ok {
		return false, ok, err
	}
	return parseBool(key, raw)
}

// SetBool stores value as "true" or "false".
func (s *SQLiteStore) SetBool(ctx context.Context, key string, value bool) error {
	return s.SetString(ctx, key, strconv.FormatBool(value))
}

// Remove deletes key. Removing a missing key is not an error.
func (s *SQLiteStore) Remove(ctx context.Context, key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv_store WHERE key = ?`, key); err != nil {
		return fmt.Errorf("removing %s: %w", key, err)
	}
	return nil
}

// UpdatedAt reports when key was last written.
func (s *SQLiteStore) UpdatedAt(ctx context.Context, key string) (time.Time, bool, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT updated_at FROM kv_store WHERE key = ?`, key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("reading %s timestamp: %w", key, err)
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("parsing %s timestamp: %w", key, err)
	}
	return t, true, nil
}

func parseBool(key, raw string) (bool, bool, error) {
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, true, fmt.Errorf("%w: %s = %q", ErrInvalidBool, key, raw)
	}
	return v, true, nil
}
