//go:build integration

package database_test

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/saturnino-fabrica-de-software/livegate/internal/database"
)

func startPostgres(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "test",
				"POSTGRES_PASSWORD": "test",
				"POSTGRES_DB":       "livegate_test",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	return fmt.Sprintf("postgres://test:test@%s:%s/livegate_test?sslmode=disable", host, port.Port())
}

func TestMigratorIntegration(t *testing.T) {
	ctx := context.Background()
	dsn := startPostgres(t)

	db, err := database.OpenSQL(ctx, dsn)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	t.Run("Up creates the session table", func(t *testing.T) {
		migrator, err := database.NewMigrator(db)
		require.NoError(t, err)

		require.NoError(t, migrator.Up())
		// A second run is a no-op
		require.NoError(t, migrator.Up())

		assertTableExists(t, db, "liveness_sessions")
	})

	t.Run("Version returns current version", func(t *testing.T) {
		migrator, err := database.NewMigrator(db)
		require.NoError(t, err)

		version, dirty, err := migrator.Version()
		require.NoError(t, err)
		assert.False(t, dirty, "migration should not be dirty")
		assert.Equal(t, uint(1), version)
	})

	t.Run("schema has the session columns", func(t *testing.T) {
		columns := getTableColumns(t, db, "liveness_sessions")
		for _, col := range []string{
			"id", "subject_reference", "challenge_type", "status",
			"liveness_attempts", "authentication_attempts", "max_attempts",
			"liveness_result", "auth_token", "expires_at",
		} {
			assert.Contains(t, columns, col)
		}

		indexes := getTableIndexes(t, db, "liveness_sessions")
		assert.Contains(t, indexes, "idx_liveness_sessions_expires_at")
		assert.Contains(t, indexes, "idx_liveness_sessions_status")
	})

	t.Run("attempt counters cannot go negative", func(t *testing.T) {
		_, err := db.Exec(`
			INSERT INTO liveness_sessions (id, subject_reference, challenge_type, liveness_attempts, expires_at)
			VALUES ($1, $2, $3, $4, $5)
		`, "0b7c5f8e-8d3a-4f44-9c0e-2d6f0f4b1a10", "subject", "blink", -1, time.Now().Add(time.Minute))
		assert.Error(t, err)
	})

	t.Run("Down drops the table", func(t *testing.T) {
		migrator, err := database.NewMigrator(db)
		require.NoError(t, err)

		require.NoError(t, migrator.Down())

		var exists bool
		require.NoError(t, db.QueryRow(tableExistsQuery, "liveness_sessions").Scan(&exists))
		assert.False(t, exists)
	})
}

func TestMigrate(t *testing.T) {
	dsn := startPostgres(t)

	require.NoError(t, database.Migrate(context.Background(), dsn, slog.New(slog.DiscardHandler)))

	db, err := database.OpenSQL(context.Background(), dsn)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	assertTableExists(t, db, "liveness_sessions")
	assertTableExists(t, db, database.MigrationsTable)
}

const tableExistsQuery = `
	SELECT EXISTS (
		SELECT FROM information_schema.tables
		WHERE table_schema = 'public'
		AND table_name = $1
	)`

func assertTableExists(t *testing.T, db *sql.DB, tableName string) {
	t.Helper()

	var exists bool
	require.NoError(t, db.QueryRow(tableExistsQuery, tableName).Scan(&exists))
	assert.True(t, exists, "table %s should exist", tableName)
}

func getTableColumns(t *testing.T, db *sql.DB, tableName string) []string {
	t.Helper()

	rows, err := db.Query(`
		SELECT column_name
		FROM information_schema.columns
		WHERE table_schema = 'public'
		AND table_name = $1
		ORDER BY ordinal_position
	`, tableName)
	require.NoError(t, err)
	defer func() { _ = rows.Close() }()

	var columns []string
	for rows.Next() {
		var col string
		require.NoError(t, rows.Scan(&col))
		columns = append(columns, col)
	}

	return columns
}

func getTableIndexes(t *testing.T, db *sql.DB, tableName string) []string {
	t.Helper()

	rows, err := db.Query(`
		SELECT indexname
		FROM pg_indexes
		WHERE schemaname = 'public'
		AND tablename = $1
	`, tableName)
	require.NoError(t, err)
	defer func() { _ = rows.Close() }()

	var indexes []string
	for rows.Next() {
		var idx string
		require.NoError(t, rows.Scan(&idx))
		indexes = append(indexes, idx)
	}

	return indexes
}
