//go:build !sqlite_cgo

package store

import (
	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)
)

// sqliteDriver selects the database/sql driver name.
// The default build uses modernc.org/sqlite so binaries cross-compile
// without a C toolchain.
const sqliteDriver = "sqlite"
