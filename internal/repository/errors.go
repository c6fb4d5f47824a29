// Package repository holds the SQL and in-memory stores behind the secure
// delivery path: issued tokens, document metadata and the download audit
// log.  The sentinel values below let the service and handler layers tell
// "row does not exist" apart from infrastructure failures.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrTokenNotFound is returned when no token row matches the lookup.
var ErrTokenNotFound = errors.New("token not found")

// ErrDocumentNotFound is returned when the referenced document row is gone.
var ErrDocumentNotFound = errors.New("document not found")

// ErrConflict is returned when an insert collides with an existing unique
// value, e.g. a duplicated token string.
var ErrConflict = errors.New("conflict")

// isUniqueViolation recognises duplicate-key errors from both supported
// drivers: MySQL error 1062 and Postgres SQLSTATE 23505.
func isUniqueViolation(err error) bool {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1062
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
