package postgres

import (
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// undefinedTable is the Postgres SQLSTATE for "relation does not exist".
const undefinedTable = "42P01"

// isUndefinedTable reports whether err means the backing table has not been
// provisioned yet. This is deliberately not a failure for the service layer.
func isUndefinedTable(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == undefinedTable
}

// textArray converts a string slice to a pgx-compatible text array.
// nil slices become empty arrays to avoid SQL NULL.
func textArray(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// nullTime converts a nil *time.Time to SQL NULL.
func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

// scannable abstracts pgx.Row and pgx.Rows for shared scan helpers.
type scannable interface {
	Scan(dest ...any) error
}
