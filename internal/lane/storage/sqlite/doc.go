// Package sqlite persists lane tracking sessions and their per-frame
// outcomes for offline analysis.
//
// All SQL for lane tracking lives here so the lane package stays free of
// storage concerns. The schema is owned by the embedded migrations and
// applied with golang-migrate when the database is opened.
package sqlite
