// Package fixture reads and writes gateway-routed fixtures in the relational
// fixture store.
//
// Writes that must be atomic go through a Tx obtained from Store.Begin.
// Store.Delete is an autocommit delete used for retirement once the
// establishing transaction has already committed.
//
// SQLStore works with PostgreSQL (pgx) and SQLite. The table itself is owned
// by the fixture store and is expected to have the columns
// id, name (unique), latitude, longitude, id_gateway and zone_ident.
package fixture
