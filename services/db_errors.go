package services

import (
	"errors"
	"fmt"
	"strings"

	mysql "github.com/go-sql-driver/mysql"
	"gorm.io/gorm"

	"occupancy-backend/utils"
)

const (
	mysqlErrDuplicateEntry  = 1062
	mysqlErrLockWaitTimeout = 1205
	mysqlErrDeadlock        = 1213
)

// classifyDBError turns storage failures that mean "someone else got there
// first" into ErrConflict and missing rows into ErrNotFound.
func classifyDBError(err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %s", utils.ErrNotFound, what)
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case mysqlErrDuplicateEntry, mysqlErrLockWaitTimeout, mysqlErrDeadlock:
			return fmt.Errorf("%w: %s: %v", utils.ErrConflict, what, err)
		}
	}

	// sqlite (tests) reports constraint violations as plain text
	lc := strings.ToLower(err.Error())
	if strings.Contains(lc, "unique constraint failed") || strings.Contains(lc, "duplicate entry") {
		return fmt.Errorf("%w: %s: %v", utils.ErrConflict, what, err)
	}
	return fmt.Errorf("%s: %w", what, err)
}
