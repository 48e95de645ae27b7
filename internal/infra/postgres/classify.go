package postgres

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dvloznov/nyc-taxi-pipeline/internal/warehouse"
)

// classify wraps a driver error as a warehouse.StorageError. Typed driver
// errors are classified by SQLSTATE; message-substring matching is the
// fallback only for errors pgx does not surface as *pgconn.PgError.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return &warehouse.StorageError{
			Kind:       kindForSQLState(pgErr.Code, pgErr.ConstraintName),
			Constraint: pgErr.ConstraintName,
			Err:        fmt.Errorf("%s: %w", op, err),
		}
	}

	if isConnectivityError(err) {
		return &warehouse.StorageError{
			Kind: warehouse.KindUnavailable,
			Err:  fmt.Errorf("%s: %w", op, err),
		}
	}

	return &warehouse.StorageError{
		Kind: warehouse.KindUnknown,
		Err:  fmt.Errorf("%s: %w", op, err),
	}
}

func kindForSQLState(code, constraint string) warehouse.ErrorKind {
	switch {
	case code == "23505":
		if strings.HasSuffix(constraint, "_pkey") {
			return warehouse.KindPrimaryKey
		}
		return warehouse.KindDuplicateKey
	case code == "23503":
		return warehouse.KindForeignKey
	case code == "23514" || code == "23502":
		return warehouse.KindCheckViolation
	case strings.HasPrefix(code, "22"): // data exception class
		return warehouse.KindDataType
	case strings.HasPrefix(code, "08"),
		code == "57P01", code == "57P02", code == "57P03": // shutdown and connection classes
		return warehouse.KindUnavailable
	default:
		return warehouse.KindUnknown
	}
}

func isConnectivityError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	msg := err.Error()
	for _, marker := range []string{"connection refused", "connection reset", "broken pipe", "closed pool", "conn closed"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
