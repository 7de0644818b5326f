// Package sqlite provides the offline cache store backed by SQLite.
//
// Rows only hold responses fetched from the origin, so the database can be
// deleted at any time and rebuilt by the next install.
package sqlite
