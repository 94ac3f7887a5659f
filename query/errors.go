package query

import (
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
)

var (
	// ErrMalformedCondition is returned when a condition shape cannot be compiled.
	ErrMalformedCondition = errors.New("malformed condition")
	// ErrInvalidStatement is returned when the builder state cannot form a statement.
	ErrInvalidStatement = errors.New("invalid statement")
)

// Malformed wraps ErrMalformedCondition with a formatted reason.
func Malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedCondition, fmt.Sprintf(format, args...))
}

// Invalid wraps ErrInvalidStatement with a formatted reason.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidStatement, fmt.Sprintf(format, args...))
}

// DriverError carries a failure reported by the database driver together with
// the statement that caused it.
type DriverError struct {
	Op       string
	SQL      string
	Code     uint16
	SQLState string
	Message  string
	Err      error
}

// NewDriverError wraps err, extracting the MySQL error number and state when present.
func NewDriverError(op, sql string, err error) *DriverError {
	de := &DriverError{Op: op, SQL: sql, Message: err.Error(), Err: err}
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		de.Code = me.Number
		de.SQLState = string(me.SQLState[:])
		de.Message = me.Message
	}
	return de
}

func (e *DriverError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("%s failed: error %d (%s): %s", e.Op, e.Code, e.SQLState, e.Message)
	}
	return fmt.Sprintf("%s failed: %s", e.Op, e.Message)
}

func (e *DriverError) Unwrap() error {
	return e.Err
}

// IsDriverError reports whether err came from the database driver.
func IsDriverError(err error) bool {
	var de *DriverError
	return errors.As(err, &de)
}
