package database

import "errors"

var (
	// ErrUnsupportedDriver is returned by OpenStore for drivers other than pgx and sqlite3.
	ErrUnsupportedDriver = errors.New("database: unsupported driver")

	// ErrMigrationNotFound is returned when the latest applied version has no file.
	ErrMigrationNotFound = errors.New("database: migration not found")

	// ErrNoDownMigration is returned when rolling back a migration without down SQL.
	ErrNoDownMigration = errors.New("database: migration has no down SQL")
)
