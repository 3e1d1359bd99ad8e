package audit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ItemIndex remembers which tracking board item mirrors each serial, so a
// re-reported asset updates its row instead of adding another.
type ItemIndex interface {
	ItemID(ctx context.Context, serial string) (string, bool, error)
	PutItemID(ctx context.Context, serial, itemID string) error
}

// SQLiteIndex keeps the item index in the local state database.
type SQLiteIndex struct {
	db *sql.DB
}

var _ ItemIndex = (*SQLiteIndex)(nil)

// NewSQLiteIndex creates an item index.
func NewSQLiteIndex(db *sql.DB) *SQLiteIndex {
	return &SQLiteIndex{db: db}
}

// ItemID returns the item for serial and whether one is known.
func (x *SQLiteIndex) ItemID(ctx context.Context, serial string) (string, bool, error) {
	var id string
	err := x.db.QueryRowContext(ctx, "SELECT item_id FROM tracking_items WHERE serial = ?", serial).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("looking up tracking item for %s: %w", serial, err)
	}
	return id, true, nil
}

// PutItemID records or replaces the item for serial.
func (x *SQLiteIndex) PutItemID(ctx context.Context, serial, itemID string) error {
	now := time.Now().UTC().Format(timestampLayout)
	_, err := x.db.ExecContext(ctx,
		`INSERT INTO tracking_items (serial, item_id, created_at, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(serial) DO UPDATE SET item_id = excluded.item_id, updated_at = excluded.updated_at`,
		serial, itemID, now, now,
	)
	if err != nil {
		return fmt.Errorf("storing tracking item for %s: %w", serial, err)
	}
	return nil
}
