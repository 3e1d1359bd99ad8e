// Package database provides database/sql connectivity for assetsync.
//
// Two kinds of database are handled here:
//   - the local state SQLite file (tracking item index and reconciliation
//     log), opened with Open and versioned with embedded migrations
//   - external relational stores such as the fixture table, opened with
//     OpenStore using the pgx (PostgreSQL) or sqlite3 driver
//
// Queries are written with ? placeholders; Rebind converts them for PostgreSQL.
//
// Usage:
//
//	db, err := database.Open(database.Config{Path: cfg.Database.Path, WALMode: true})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
//
// Migrations are additive-only: new columns must be NULLABLE or have
// DEFAULT values, and each .up.sql has a matching .down.sql.
package database
