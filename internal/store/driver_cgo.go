//go:build sqlite_cgo

package store

import (
	_ "github.com/mattn/go-sqlite3" // CGO SQLite driver
)

// sqliteDriver selects the database/sql driver name.
// Build with -tags sqlite_cgo to use mattn/go-sqlite3, which is faster
// on large vaults at the cost of requiring CGO.
const sqliteDriver = "sqlite3"
