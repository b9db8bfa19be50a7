// Package testutil provides shared test helpers.
package testutil

import (
	"database/sql"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/iliyamo/movie-booking/internal/database"
)

// TestDB creates a temporary SQLite database with all migrations applied.
// The database is closed when the test finishes.
func TestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "booking-test.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := database.Migrate(db, "sqlite"); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// TestLogger returns a logger that writes warnings and errors to the test output.
func TestLogger(t *testing.T) *zap.Logger {
	t.Helper()
	return zaptest.NewLogger(t, zaptest.Level(zap.WarnLevel))
}
