// Package repository defines the SQL data access layer and the error
// values shared across repositories.  Handlers and services match these
// sentinels with errors.Is to choose a response.
package repository

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var (
	// ErrEmailExists is returned when registering an email that is already taken.
	ErrEmailExists = errors.New("email already exists")
	// ErrUserNotFound indicates that no user matched the lookup.
	ErrUserNotFound = errors.New("user not found")
	// ErrMovieNotFound indicates that no movie matched the lookup.
	ErrMovieNotFound = errors.New("movie not found")
	// ErrShowtimeNotFound indicates that no showtime matched the lookup.
	ErrShowtimeNotFound = errors.New("showtime not found")
	// ErrBookingNotFound indicates that no booking matched the lookup.
	ErrBookingNotFound = errors.New("booking not found")
)

// isDuplicateKey reports whether err is a unique-constraint violation from
// either supported driver.
func isDuplicateKey(err error) bool {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1062
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
