// Package state re-exports the backend abstractions and provides the typed,
// lock-scoped access every component uses to read and write its documents.
package state

import (
	"dreammover/internal/state/core"
)

type (
	// Driver identifies a state backend driver.
	Driver = core.Driver
	// Backend is the interface for state storage backends.
	Backend = core.Backend
)

const (
	// DriverFilesystem is the local filesystem driver.
	DriverFilesystem = core.DriverFilesystem
	// DriverMemory is the in-memory test driver.
	DriverMemory = core.DriverMemory
	// DriverSQLite is the embedded sqlite driver.
	DriverSQLite = core.DriverSQLite
	// DriverPostgres is the PostgreSQL driver.
	DriverPostgres = core.DriverPostgres
	// DriverRedis is the redis driver.
	DriverRedis = core.DriverRedis
	// DriverS3 is the S3-compatible driver.
	DriverS3 = core.DriverS3
)

// ErrNotFound is returned by backends when a key holds no document.
var ErrNotFound = core.ErrNotFound
