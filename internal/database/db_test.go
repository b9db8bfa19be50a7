package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/movie-booking/internal/config"
)

func TestOpenSQLiteAndMigrate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "booking.db")
	db, err := Open(config.DBConfig{Driver: "sqlite", Path: path})
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, Migrate(db, "sqlite"))
	// a second run is a no-op
	require.NoError(t, Migrate(db, "sqlite"))

	for _, table := range []string{"users", "movies", "showtimes", "bookings"} {
		var n int
		err := db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&n)
		require.NoError(t, err, table)
		assert.Zero(t, n, table)
	}
}

func TestOpenUnsupportedDriver(t *testing.T) {
	_, err := Open(config.DBConfig{Driver: "oracle"})
	assert.Error(t, err)
}
