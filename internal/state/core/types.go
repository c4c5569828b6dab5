// Package core defines the backend abstraction for keyed state documents
// used internally by the state store.
package core

import (
	"context"
	"errors"
)

// Driver identifies a concrete state backend implementation.
type Driver string

const (
	// DriverFilesystem stores one JSON file per key under a root directory.
	DriverFilesystem Driver = "fs" // local filesystem (default)
	// DriverMemory keeps documents in process memory.
	DriverMemory Driver = "memory" // in-memory (tests)
	// DriverSQLite stores documents in an embedded sqlite table.
	DriverSQLite Driver = "sqlite"
	// DriverPostgres stores documents in a PostgreSQL table.
	DriverPostgres Driver = "postgres"
	// DriverRedis stores documents as redis string values.
	DriverRedis Driver = "redis"
	// DriverS3 stores documents as objects in an S3 / MinIO compatible bucket.
	DriverS3 Driver = "s3"
)

// Backend persists whole documents by key. Put must replace the previous
// document atomically: readers observe either the old or the new payload.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, payload []byte) error
	Driver() Driver
}

// ErrNotFound is returned by Get when no document exists for the key.
var ErrNotFound = errors.New("state: key not found")
