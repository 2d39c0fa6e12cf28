package store

import (
	"context"
	"os"
	"testing"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/starshop/core/database"
	"github.com/m3rciful/starshop/migrations"
)

// STARSHOP_TEST_POSTGRES_DSN points at a disposable database; its tables are
// truncated before every subtest.
const postgresDSNEnv = "STARSHOP_TEST_POSTGRES_DSN"

func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv(postgresDSNEnv)
	if dsn == "" {
		t.Skipf("%s not set", postgresDSNEnv)
	}
	ctx := context.Background()

	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.RunMigrations(ctx, db, migrations.Files))

	runStoreSuite(t, func(t *testing.T) Store {
		t.Helper()
		_, err := db.ExecContext(ctx, `TRUNCATE products, orders, welcome RESTART IDENTITY`)
		require.NoError(t, err)
		_, err = db.ExecContext(ctx, `UPDATE shop_stats SET total_orders = 0, total_revenue = 0 WHERE id = 1`)
		require.NoError(t, err)
		// The pool is shared across subtests, so Close is not registered here.
		return NewPostgres(db)
	})
}
