package postgres

import (
	"context"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rental-hub/rental-hub/internal/domain/booking"
)

// NewPool creates a pgx connection pool.
func NewPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	return pgxpool.NewWithConfig(ctx, config)
}

func itoa(i int) string {
	return strconv.Itoa(i)
}

func addWhere(query string) string {
	if strings.Contains(query, " WHERE ") {
		return " AND"
	}
	return " WHERE"
}

// versioned interprets the result of an UPDATE guarded by "version=$n". When no row
// matched it tells a missing record apart from a stale version.
func versioned(ctx context.Context, pool *pgxpool.Pool, tag pgconn.CommandTag, table, idColumn string, id interface{}) error {
	if tag.RowsAffected() > 0 {
		return nil
	}
	var one int
	err := pool.QueryRow(ctx, "SELECT 1 FROM "+table+" WHERE "+idColumn+"=$1", id).Scan(&one)
	if err == pgx.ErrNoRows {
		return booking.ErrNotFound
	}
	if err != nil {
		return err
	}
	return booking.ErrVersionConflict
}
