package repository

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound is returned when no record matches the key.
	ErrNotFound = errors.New("record not found")
	// ErrAlreadyExists is returned when inserting a duplicate key.
	ErrAlreadyExists = errors.New("record already exists")
)

const pgUniqueViolation = "23505"

// translatePgError maps driver errors onto the repository sentinels.
func translatePgError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return ErrAlreadyExists
	}
	return err
}
