// Package audit records every reconciliation, whatever its outcome.
//
// The Recorder mirrors each report onto the tracking board (creating the
// serial's row the first time and updating it afterwards), attaches the
// asset photo and appends an entry to the local reconciliation log. The
// log and the serial-to-item index live in the local state SQLite database.
package audit
