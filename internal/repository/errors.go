package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// IsDuplicate - signals that the error is a duplicate key violation.
func IsDuplicate(err error) bool {
	var pgerr *pgconn.PgError
	return errors.As(err, &pgerr) && pgerr.Code == "23505"
}

// IsTransient reports store-access failures worth retrying on the next cycle:
// timeouts, dropped connections and server-side connection/shutdown errors.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || pgconn.Timeout(err) || pgconn.SafeToRetry(err) {
		return true
	}
	var pgerr *pgconn.PgError
	if errors.As(err, &pgerr) {
		// 08: connection exception, 57P: operator intervention (shutdown, cancel)
		return strings.HasPrefix(pgerr.Code, "08") || strings.HasPrefix(pgerr.Code, "57P")
	}
	var connErr *pgconn.ConnectError
	return errors.As(err, &connErr)
}
