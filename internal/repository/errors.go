package repository

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrNotFound = errors.New("record not found")
	// ErrMissingIndex means the schema objects backing a query (tables, sort indexes) are absent.
	ErrMissingIndex = errors.New("required table or index is missing, run migrate")
)

// Postgres SQLSTATE codes for undefined schema objects.
var missingObjectCodes = map[string]struct{}{
	"42P01": {}, // undefined_table
	"42703": {}, // undefined_column
	"42704": {}, // undefined_object
}

func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if _, ok := missingObjectCodes[pgErr.Code]; ok {
			return errors.Join(ErrMissingIndex, err)
		}
	}
	return err
}
