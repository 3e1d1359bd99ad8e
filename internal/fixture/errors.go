package fixture

import "errors"

var (
	// ErrNotFound is returned when no row has the requested name.
	ErrNotFound = errors.New("fixture: not found")

	// ErrInvalidTable is returned for table names that are not plain identifiers.
	ErrInvalidTable = errors.New("fixture: invalid table name")

	// ErrTxDone is returned when a statement is issued on a finished transaction.
	ErrTxDone = errors.New("fixture: transaction already finished")
)
