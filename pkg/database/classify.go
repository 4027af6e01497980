package database

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"net"
	"strings"

	"github.com/lib/pq"

	appErrors "github.com/VPRamon/TSI-sub000/pkg/errors"
)

// Classify maps driver errors onto the application error taxonomy. Errors
// already carrying a kind are returned untouched.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return err
	}

	switch {
	case errors.Is(err, sql.ErrNoRows):
		return appErrors.WrapAs(err, appErrors.ErrNotFound, "")
	case errors.Is(err, driver.ErrBadConn),
		errors.Is(err, sql.ErrConnDone),
		errors.Is(err, context.DeadlineExceeded):
		return appErrors.WrapAs(err, appErrors.ErrConnection, "")
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return classifyPQ(pqErr)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return appErrors.WrapAs(err, appErrors.ErrConnection, "")
	}

	return appErrors.WrapAs(err, appErrors.ErrQuery, "")
}

func classifyPQ(err *pq.Error) error {
	code := string(err.Code)
	switch {
	case code == "23505":
		return appErrors.WrapAs(err, appErrors.ErrConflict, "duplicate key")
	case strings.HasPrefix(code, "08"),
		strings.HasPrefix(code, "53"),
		code == "57P01", code == "57P02", code == "57P03",
		code == "40001", code == "40P01":
		return appErrors.WrapAs(err, appErrors.ErrConnection, "")
	default:
		return appErrors.WrapAs(err, appErrors.ErrQuery, "")
	}
}

// IsUniqueViolation reports whether err originates from a unique constraint.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
