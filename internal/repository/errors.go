// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// services to distinguish between different failure scenarios without
// inspecting driver errors.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when a lookup or a required single-row update
// matched nothing.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a write violates a unique constraint, such
// as a second order for the same user and day or a second team with the
// same leader.
var ErrConflict = errors.New("conflict")

// ErrPhoneExists is returned by AccountRepo.Create for a taken phone.
var ErrPhoneExists = errors.New("phone already exists")

// ErrInvalidFilter is returned by ParseFilter for unsupported values.
var ErrInvalidFilter = errors.New("invalid filter")

const mysqlDuplicateEntry = 1062

// isDuplicate reports whether err is a MySQL duplicate-key violation.
func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}
