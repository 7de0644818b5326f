// Package app wires the offline cache worker into a running service: SQLite
// storage, the HTTP surface, background sync delivery and gRPC health.
package app
