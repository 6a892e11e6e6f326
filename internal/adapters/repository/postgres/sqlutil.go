package postgres

import (
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

// asPgError は err が指定した SQLSTATE の PgError であればそれを返します。
func asPgError(err error, codes ...string) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return nil, false
	}
	for _, code := range codes {
		if pgErr.Code == code {
			return pgErr, true
		}
	}
	return nil, false
}

// isInvalidText は UUID などの入力表現が不正な場合に true を返します。
func isInvalidText(err error) bool {
	_, ok := asPgError(err, pgerrcode.InvalidTextRepresentation)
	return ok
}

func nullableDate(value *time.Time) any {
	if value == nil {
		return nil
	}
	return dateOnly(*value)
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func nullStringPtr(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullableTimestamp(value *time.Time) any {
	if value == nil {
		return nil
	}
	return *value
}
