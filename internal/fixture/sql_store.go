package fixture

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/nerrad567/assetsync/internal/infrastructure/database"
)

// tableName allows "table" or "schema.table" made of plain identifiers.
var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// DefaultTimeout bounds each statement when NewSQLStore is given no timeout.
const DefaultTimeout = 10 * time.Second

// SQLStore implements Store over database/sql.
//
// Every statement runs under its own deadline. A transaction lives as long
// as the context passed to Begin, since database/sql rolls it back when that
// context ends.
type SQLStore struct {
	db      *sql.DB
	queries queries
	timeout time.Duration
}

var _ Store = (*SQLStore)(nil)

// queries are prepared once per store with the table name and the driver's
// placeholder style baked in.
type queries struct {
	exists string
	get    string
	insert string
	update string
	delete string
}

// NewSQLStore creates a store over db. driver selects the placeholder style
// ("pgx" or "sqlite3"), table names the fixture table and timeout bounds each
// statement (DefaultTimeout when zero).
func NewSQLStore(db *sql.DB, driver, table string, timeout time.Duration) (*SQLStore, error) {
	if !tableName.MatchString(table) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTable, table)
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	q := func(s string) string { return database.Rebind(driver, fmt.Sprintf(s, table)) }
	return &SQLStore{
		db:      db,
		timeout: timeout,
		queries: queries{
			exists: q("SELECT 1 FROM %s WHERE name = ? LIMIT 1"),
			get:    q("SELECT id, name, latitude, longitude, id_gateway, COALESCE(zone_ident, '') FROM %s WHERE name = ?"),
			insert: q("INSERT INTO %s (name, latitude, longitude, id_gateway, zone_ident) VALUES (?, ?, ?, ?, ?) RETURNING id"),
			update: q("UPDATE %s SET name = ?, latitude = ?, longitude = ?, id_gateway = ?, zone_ident = ? WHERE name = ?"),
			delete: q("DELETE FROM %s WHERE name = ?"),
		},
	}, nil
}

// Begin starts a transaction.
func (s *SQLStore) Begin(ctx context.Context) (Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("starting fixture transaction: %w", err)
	}
	return &sqlTx{tx: tx, q: &s.queries, timeout: s.timeout}, nil
}

// Delete removes a fixture outside any transaction.
func (s *SQLStore) Delete(ctx context.Context, name string) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return deleteRow(ctx, s.db, &s.queries, name)
}

// get reads back one fixture by name.
func (s *SQLStore) get(ctx context.Context, name string) (Row, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var r Row
	err := s.db.QueryRowContext(ctx, s.queries.get, name).
		Scan(&r.ID, &r.Name, &r.Latitude, &r.Longitude, &r.GatewayID, &r.ZoneIdent)
	if errors.Is(err, sql.ErrNoRows) {
		return Row{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return Row{}, fmt.Errorf("querying fixture %s: %w", name, err)
	}
	return r, nil
}

// HealthCheck verifies the store answers queries.
func (s *SQLStore) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return database.HealthCheck(ctx, s.db)
}

type sqlTx struct {
	tx      *sql.Tx
	q       *queries
	timeout time.Duration
	done    bool
}

func (t *sqlTx) Exists(ctx context.Context, name string) (bool, error) {
	if t.done {
		return false, ErrTxDone
	}
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	var one int
	err := t.tx.QueryRowContext(ctx, t.q.exists, name).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking fixture %s: %w", name, err)
	}
	return true, nil
}

func (t *sqlTx) Insert(ctx context.Context, row Row) (int64, error) {
	if t.done {
		return 0, ErrTxDone
	}
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	var id int64
	err := t.tx.QueryRowContext(ctx, t.q.insert,
		row.Name, row.Latitude, row.Longitude, row.GatewayID, row.ZoneIdent,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("inserting fixture %s: %w", row.Name, err)
	}
	return id, nil
}

func (t *sqlTx) Update(ctx context.Context, row Row, name string) error {
	if t.done {
		return ErrTxDone
	}
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	res, err := t.tx.ExecContext(ctx, t.q.update,
		row.Name, row.Latitude, row.Longitude, row.GatewayID, row.ZoneIdent, name,
	)
	if err != nil {
		return fmt.Errorf("updating fixture %s: %w", name, err)
	}
	return requireRow(res, name)
}

func (t *sqlTx) Delete(ctx context.Context, name string) error {
	if t.done {
		return ErrTxDone
	}
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return deleteRow(ctx, t.tx, t.q, name)
}

func (t *sqlTx) Commit() error {
	if t.done {
		return ErrTxDone
	}
	t.done = true
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("committing fixture transaction: %w", err)
	}
	return nil
}

func (t *sqlTx) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	if err := t.tx.Rollback(); err != nil {
		return fmt.Errorf("rolling back fixture transaction: %w", err)
	}
	return nil
}

func deleteRow(ctx context.Context, q queryer, qs *queries, name string) error {
	res, err := q.ExecContext(ctx, qs.delete, name)
	if err != nil {
		return fmt.Errorf("deleting fixture %s: %w", name, err)
	}
	return requireRow(res, name)
}

func requireRow(res sql.Result, name string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return nil
}
