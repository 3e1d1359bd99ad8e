// Package tracking mirrors each reconciled asset onto a tracking board so
// field supervisors can see what happened to it.
//
// MondayClient implements Board against the monday.com GraphQL API. Column
// values are always sent as GraphQL variables, never spliced into the query.
package tracking
