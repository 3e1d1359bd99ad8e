package fixture

import "context"

// Row is one fixture, keyed by Name (the normalized serial).
type Row struct {
	ID        int64
	Name      string
	Latitude  float64
	Longitude float64
	GatewayID int
	ZoneIdent string
}

// Store opens transactions and performs autocommit deletes.
type Store interface {
	Begin(ctx context.Context) (Tx, error)
	Delete(ctx context.Context, name string) error
}

// Tx is a unit of work against the fixture store.
//
// Exactly one of Commit or Rollback takes effect. Rollback after Commit is a
// no-op, so callers can always defer it.
type Tx interface {
	Exists(ctx context.Context, name string) (bool, error)
	Insert(ctx context.Context, row Row) (int64, error)
	Update(ctx context.Context, row Row, name string) error
	Delete(ctx context.Context, name string) error
	Commit() error
	Rollback() error
}
