package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	defaultLimit = 50
	maxLimit     = 200

	// timestampLayout is fixed width so TEXT ordering matches time ordering.
	timestampLayout = "2006-01-02T15:04:05.000000Z07:00"
)

// Entry is one row of the local reconciliation log.
type Entry struct {
	ID             string          `json:"id"`
	RunID          string          `json:"run_id"`
	Serial         string          `json:"serial"`
	PreviousSerial string          `json:"previous_serial,omitempty"`
	Class          string          `json:"class"`
	Status         string          `json:"status"`
	Reason         string          `json:"reason,omitempty"`
	Report         json.RawMessage `json:"report"`
	TrackingItemID string          `json:"tracking_item_id,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

// Filter controls which log entries to return.
type Filter struct {
	Serial string // optional: exact normalized serial
	Status string // optional: pass, partial or failed
	Limit  int    // default 50, max 200
	Offset int
}

// ListResult contains a page of log entries.
type ListResult struct {
	Entries []Entry `json:"entries"`
	Total   int     `json:"total"`
	Limit   int     `json:"limit"`
	Offset  int     `json:"offset"`
}

// Repository defines the reconciliation log operations.
type Repository interface {
	Create(ctx context.Context, e *Entry) error
	List(ctx context.Context, filter Filter) (*ListResult, error)
}

// SQLiteRepository stores the reconciliation log in the local state database.
type SQLiteRepository struct {
	db *sql.DB
}

var _ Repository = (*SQLiteRepository)(nil)

// NewSQLiteRepository creates a reconciliation log repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Create inserts an entry. The ID and CreatedAt are generated if empty.
func (r *SQLiteRepository) Create(ctx context.Context, e *Entry) error {
	if e.ID == "" {
		e.ID = "rec-" + uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	report := string(e.Report)
	if report == "" {
		report = "{}"
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO reconciliation_log
		 (id, run_id, serial, previous_serial, class, status, reason, report, tracking_item_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.RunID, e.Serial, nullableString(e.PreviousSerial),
		e.Class, e.Status, nullableString(e.Reason), report,
		nullableString(e.TrackingItemID),
		e.CreatedAt.UTC().Format(timestampLayout),
	)
	if err != nil {
		return fmt.Errorf("inserting reconciliation log: %w", err)
	}
	return nil
}

// nullableString maps "" to NULL for optional TEXT columns.
func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// List returns entries matching the filter, most recent first.
func (r *SQLiteRepository) List(ctx context.Context, filter Filter) (*ListResult, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultLimit
	}
	if filter.Limit > maxLimit {
		filter.Limit = maxLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	var conditions []string
	var args []any
	if filter.Serial != "" {
		conditions = append(conditions, "serial = ?")
		args = append(args, filter.Serial)
	}
	if filter.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, filter.Status)
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM reconciliation_log %s", where) //nolint:gosec // WHERE built from parameterised conditions
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("counting reconciliation log: %w", err)
	}

	query := fmt.Sprintf( //nolint:gosec // WHERE built from parameterised conditions
		`SELECT id, run_id, serial, previous_serial, class, status, reason, report, tracking_item_id, created_at
		 FROM reconciliation_log %s ORDER BY created_at DESC, id LIMIT ? OFFSET ?`,
		where,
	)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying reconciliation log: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var (
			e                           Entry
			previous, reason, trackedID sql.NullString
			report, createdAt           string
		)
		if err := rows.Scan(&e.ID, &e.RunID, &e.Serial, &previous, &e.Class, &e.Status,
			&reason, &report, &trackedID, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning reconciliation log: %w", err)
		}
		e.PreviousSerial = previous.String
		e.Reason = reason.String
		e.TrackingItemID = trackedID.String
		e.Report = json.RawMessage(report)

		t, err := time.Parse(timestampLayout, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing reconciliation log timestamp %q: %w", createdAt, err)
		}
		e.CreatedAt = t

		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating reconciliation log: %w", err)
	}

	return &ListResult{
		Entries: entries,
		Total:   total,
		Limit:   filter.Limit,
		Offset:  filter.Offset,
	}, nil
}
