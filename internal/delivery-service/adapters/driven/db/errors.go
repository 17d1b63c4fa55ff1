package db

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"dropx/internal/delivery-service/core/myerrors"
)

const uniqueViolation = "23505"

// mapErr translates driver-level errors into the service taxonomy.
func mapErr(err error, notFoundMsg string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return myerrors.E(myerrors.KindNotFound, notFoundMsg)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return myerrors.Wrap(myerrors.KindConflict, "duplicate row", err)
	}
	return err
}
