package errors

import (
	"database/sql/driver"
	stdErrors "errors"
	"net"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const (
	mysqlDuplicateEntry   = 1062
	mysqlRowIsReferenced  = 1451
	mysqlNoReferencedRow  = 1452
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// IsUniqueViolation reports whether err came from a unique index.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if stdErrors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var myErr *mysql.MySQLError
	if stdErrors.As(err, &myErr) {
		return myErr.Number == mysqlDuplicateEntry
	}
	var pgErr *pgconn.PgError
	if stdErrors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// IsForeignKeyViolation reports whether err came from a foreign key check.
func IsForeignKeyViolation(err error) bool {
	if err == nil {
		return false
	}
	if stdErrors.Is(err, gorm.ErrForeignKeyViolated) {
		return true
	}
	var myErr *mysql.MySQLError
	if stdErrors.As(err, &myErr) {
		return myErr.Number == mysqlRowIsReferenced || myErr.Number == mysqlNoReferencedRow
	}
	var pgErr *pgconn.PgError
	if stdErrors.As(err, &pgErr) {
		return pgErr.Code == pgForeignKeyViolation
	}
	return strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}

func isConnectionFailure(err error) bool {
	if stdErrors.Is(err, driver.ErrBadConn) || stdErrors.Is(err, mysql.ErrInvalidConn) {
		return true
	}
	var netErr net.Error
	return stdErrors.As(err, &netErr)
}

// FromDB maps a persistence error onto the typed taxonomy. Typed errors pass through.
func FromDB(err error, notFoundMsg string) error {
	if err == nil {
		return nil
	}
	if typed := As(err); typed != nil {
		return typed
	}
	switch {
	case stdErrors.Is(err, gorm.ErrRecordNotFound):
		return Wrap(CodeNotFound, err, notFoundMsg)
	case IsUniqueViolation(err):
		return Wrap(CodeConflict, err, "duplicate value violates a unique constraint")
	case IsForeignKeyViolation(err):
		return Wrap(CodeValidation, err, "referenced record does not exist or is still in use")
	case isConnectionFailure(err):
		return Wrap(CodeDependency, err, "database unavailable")
	default:
		return Wrap(CodeInternal, err, "database operation failed")
	}
}
