package postgres

import (
	"database/sql"
	"os"
	"testing"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/require"

	"github.com/athorsen/bestiary-api/internal/platform/postgres/migrations"
)

// openIntegrationDB opens the test database named by DATABASE_URL and brings
// its schema up to date. Tests that call it are skipped when no database is
// configured.
func openIntegrationDB(t *testing.T) *sql.DB {
	t.Helper()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Skip("Skipping integration test - DATABASE_URL environment variable required")
	}

	db, err := sql.Open("pgx", dbURL)
	require.NoError(t, err, "Failed to open database connection")
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Logf("Error closing database connection: %v", err)
		}
	})
	require.NoError(t, db.Ping(), "Failed to ping database")

	goose.SetBaseFS(migrations.FS)
	goose.SetTableName("schema_migrations")
	require.NoError(t, goose.SetDialect("postgres"), "Failed to set migration dialect")
	require.NoError(t, goose.Up(db, "."), "Failed to apply migrations")

	return db
}

// beginTestTx starts a transaction that is rolled back when the test ends,
// keeping test writes out of the shared database.
func beginTestTx(t *testing.T, db *sql.DB) *sql.Tx {
	t.Helper()

	tx, err := db.Begin()
	require.NoError(t, err, "Failed to begin transaction")
	t.Cleanup(func() {
		if err := tx.Rollback(); err != nil && err != sql.ErrTxDone {
			t.Logf("Error rolling back transaction: %v", err)
		}
	})
	return tx
}
