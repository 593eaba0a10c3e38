package sqlxrepos

import (
	"context"
	"database/sql"
	"database/sql/driver"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/classboard/core"
)

// uniqueViolation is the postgres error code raised on unique constraint clashes.
const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	pqErr, ok := errors.Cause(err).(*pq.Error)
	return ok && pqErr.Code == uniqueViolation
}

// wrapErr annotates err with msg. A connection the pool could not replace is unrecoverable
// and becomes a shutdown error.
func wrapErr(err error, msg string) error {
	if err == nil {
		return nil
	}
	if errors.Cause(err) == driver.ErrBadConn {
		return core.NewShutdownError(msg + ": " + err.Error())
	}
	return errors.Wrap(err, msg)
}

// trapNoRowsErr maps psql "no rows" err to notFound
func trapNoRowsErr(err, notFound error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return notFound
	}
	return wrapErr(err, msg)
}

// isUUID reports whether id may be a primary key. Anything else cannot match a row.
func isUUID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// inTx runs fn in a transaction, committed only if fn succeeds.
func inTx(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) (err error) {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return wrapErr(err, "beginning transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return wrapErr(err, "committing transaction")
	}
	return nil
}
