package postgres_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/geocoder89/givehub/internal/db"
	"github.com/jackc/pgx/v5/pgxpool"
)

// newTestPool connects to TEST_DB_DSN, applies the schema and empties the
// tables. Without a DSN the test is skipped.
func newTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN not set")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, dsn, 4)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)

	schema, err := os.ReadFile(filepath.Join("..", "..", "..", "migrations", "001_init.sql"))
	if err != nil {
		t.Fatalf("read migration: %v", err)
	}
	if _, err := pool.Exec(ctx, string(schema)); err != nil {
		t.Fatalf("apply migration: %v", err)
	}

	if _, err := pool.Exec(ctx, `TRUNCATE reconciliations, jobs`); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	return pool
}

func countJobs(t *testing.T, pool *pgxpool.Pool, where string, args ...any) int {
	t.Helper()

	var n int
	if err := pool.QueryRow(context.Background(), `SELECT COUNT(*) FROM jobs WHERE `+where, args...).Scan(&n); err != nil {
		t.Fatalf("count jobs: %v", err)
	}
	return n
}
