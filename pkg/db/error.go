package db

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const (
	// unique_violation
	pgUniqueViolation = "23505"
	// ER_DUP_ENTRY
	mysqlDupEntry = 1062
)

// IsDuplicateKeyErr reports whether err is a unique constraint violation
// on any of the supported drivers.
func IsDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == mysqlDupEntry
	}

	// glebarez/sqlite surfaces SQLITE_CONSTRAINT_UNIQUE with no exported
	// error type, only this message.
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
