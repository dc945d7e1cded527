// Package dbtest provides a migrated Postgres database for integration
// tests. Tests using it are skipped unless TEST_DSN is set.
package dbtest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"fitnexo/internal/db"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

// Open connects to TEST_DSN, applies migrations and empties every table.
func Open(t *testing.T) *sqlx.DB {
	t.Helper()

	dsn := os.Getenv("TEST_DSN")
	if dsn == "" {
		t.Skip("Skipping integration test: TEST_DSN not set")
	}

	conn, err := db.Connect(context.Background(), dsn, db.Pool{MaxOpenConns: 10})
	if err != nil {
		t.Skipf("Skipping integration test: cannot connect to test database: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	require.NoError(t, db.RunMigrations(conn, migrationsDir(t)))

	_, err = conn.Exec(`TRUNCATE access_records, payments, memberships, plans, members, gyms CASCADE`)
	require.NoError(t, err)

	return conn
}

func migrationsDir(t *testing.T) string {
	dir, err := os.Getwd()
	require.NoError(t, err)

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return filepath.Join(dir, "migrations")
		}
		parent := filepath.Dir(dir)
		require.NotEqual(t, dir, parent, "go.mod not found above test directory")
		dir = parent
	}
}

func CreateGym(t *testing.T, conn *sqlx.DB, name string) uuid.UUID {
	t.Helper()

	var id uuid.UUID
	err := conn.QueryRow(`INSERT INTO gyms (name) VALUES ($1) RETURNING id`, name).Scan(&id)
	require.NoError(t, err)
	return id
}

func CreateMember(t *testing.T, conn *sqlx.DB, gymID uuid.UUID, nationalID, firstName, email string) uuid.UUID {
	t.Helper()

	var id uuid.UUID
	err := conn.QueryRow(`
		INSERT INTO members (gym_id, national_id, first_name, last_name, email)
		VALUES ($1, $2, $3, 'Test', NULLIF($4, ''))
		RETURNING id
	`, gymID, nationalID, firstName, email).Scan(&id)
	require.NoError(t, err)
	return id
}

func CreatePlan(t *testing.T, conn *sqlx.DB, gymID uuid.UUID, name string, price string, durationDays int) uuid.UUID {
	t.Helper()

	var id uuid.UUID
	err := conn.QueryRow(`
		INSERT INTO plans (gym_id, name, price, duration_days)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, gymID, name, price, durationDays).Scan(&id)
	require.NoError(t, err)
	return id
}

// Count runs a COUNT(*) style query.
func Count(t *testing.T, conn *sqlx.DB, query string, args ...any) int {
	t.Helper()

	var n int
	require.NoError(t, conn.Get(&n, query, args...))
	return n
}
