//go:build integration

// Package storetest connects integration tests to real Postgres and Redis
// servers. Tests are skipped when TEST_DATABASE_URL or TEST_REDIS_ADDR is
// unset.
//
//	TEST_DATABASE_URL=postgres://... TEST_REDIS_ADDR=localhost:6379 go test -tags integration ./...
package storetest

import (
	"context"
	"database/sql"
	"os"
	"testing"

	"github.com/redis/go-redis/v9"

	"attendboard/internal/store"
)

// Postgres returns a migrated database with empty attendance and banner
// tables.
func Postgres(t testing.TB) *sql.DB {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()

	db, err := store.NewDB(ctx, url, 4)
	if err != nil {
		if db != nil {
			_ = db.Close()
		}
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := store.Migrate(ctx, db.Client, false); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if _, err := db.Client.ExecContext(ctx, `TRUNCATE attendance, banner RESTART IDENTITY`); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	return db.Client
}

// Redis returns a client and a key prefix private to the calling test. Keys
// under the prefix are removed on cleanup.
func Redis(t testing.TB) (*redis.Client, string) {
	t.Helper()
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()

	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		t.Fatalf("redis ping: %v", err)
	}
	prefix := "attendboard:test:" + t.Name()
	t.Cleanup(func() {
		keys, _ := client.Keys(ctx, prefix+"*").Result()
		if len(keys) > 0 {
			client.Del(ctx, keys...)
		}
		_ = client.Close()
	})
	return client, prefix
}
