package state

import (
	"context"
	"fmt"
	"os"

	"dreammover/internal/config"
	infrafs "dreammover/internal/infra/state/fs"
	inframemory "dreammover/internal/infra/state/memory"
	infrapostgres "dreammover/internal/infra/state/postgres"
	infraredis "dreammover/internal/infra/state/redis"
	infras3 "dreammover/internal/infra/state/s3"
	infrasqlite "dreammover/internal/infra/state/sqlite"
)

// Open selects a Backend implementation from storage configuration.
// The returned close function releases driver resources and is never nil.
func Open(ctx context.Context, cfg config.Storage) (Backend, func() error, error) {
	noop := func() error { return nil }
	driver := cfg.Driver
	if driver == "" {
		driver = string(DriverFilesystem)
	}
	switch Driver(driver) {
	case DriverFilesystem:
		b, err := infrafs.New(cfg.FSRoot)
		if err != nil {
			return nil, noop, err
		}
		return b, noop, nil
	case DriverMemory:
		return inframemory.New(), noop, nil
	case DriverSQLite:
		b, err := infrasqlite.NewStore(cfg.SQLitePath)
		if err != nil {
			return nil, noop, err
		}
		return b, b.Close, nil
	case DriverPostgres:
		b, err := infrapostgres.NewStore(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, noop, err
		}
		return b, b.Close, nil
	case DriverRedis:
		b, err := infraredis.Open(ctx, cfg.RedisURL)
		if err != nil {
			return nil, noop, err
		}
		return b, b.Close, nil
	case DriverS3:
		b, err := infras3.New(ctx, infras3.Config{
			Bucket:    cfg.S3.Bucket,
			Region:    cfg.S3.Region,
			Endpoint:  cfg.S3.Endpoint,
			Prefix:    cfg.S3.Prefix,
			PathStyle: cfg.S3.PathStyle,
		})
		if err != nil {
			return nil, noop, err
		}
		return b, noop, nil
	default:
		return nil, noop, fmt.Errorf("unknown state driver %s", driver)
	}
}

// NewMockS3ForTests exposes the in-memory S3 mock for cross-package tests.
func NewMockS3ForTests() Backend { return infras3.NewMockForTests() }

// MemoryBackend is the in-memory backend; it also counts writes for tests.
type MemoryBackend = inframemory.Store

// NewMemoryForTests returns a fresh in-memory backend.
func NewMemoryForTests() *MemoryBackend { return inframemory.New() }

// WriteFileAtomic replaces path with data via a synced temp file and rename,
// creating parent directories. Components use it for reports written outside the store.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	return infrafs.WriteFileAtomic(path, data, perm)
}
