package query

import (
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSentinels(t *testing.T) {
	err := Malformed("bad arity %d", 3)
	assert.ErrorIs(t, err, ErrMalformedCondition)
	assert.Equal(t, "malformed condition: bad arity 3", err.Error())

	err = fmt.Errorf("where: %w", Invalid("no table"))
	assert.ErrorIs(t, err, ErrInvalidStatement)
	assert.NotErrorIs(t, err, ErrMalformedCondition)
}

func TestDriverError(t *testing.T) {
	t.Run("mysql error", func(t *testing.T) {
		cause := &mysql.MySQLError{Number: 1062, SQLState: [5]byte{'2', '3', '0', '0', '0'}, Message: "Duplicate entry '1' for key 'PRIMARY'"}
		err := NewDriverError("exec", "INSERT INTO `t` (`id`) VALUES (?)", fmt.Errorf("wrapped: %w", cause))

		assert.Equal(t, uint16(1062), err.Code)
		assert.Equal(t, "23000", err.SQLState)
		assert.Equal(t, "exec failed: error 1062 (23000): Duplicate entry '1' for key 'PRIMARY'", err.Error())

		var me *mysql.MySQLError
		require.True(t, errors.As(err, &me))
		assert.Same(t, cause, me)
		assert.True(t, IsDriverError(fmt.Errorf("outer: %w", err)))
	})

	t.Run("generic error", func(t *testing.T) {
		err := NewDriverError("query", "SELECT 1", assert.AnError)
		assert.Zero(t, err.Code)
		assert.ErrorIs(t, err, assert.AnError)
		assert.Equal(t, "query failed: "+assert.AnError.Error(), err.Error())
		assert.False(t, IsDriverError(assert.AnError))
	})
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "SELECT", KindSelect.String())
	assert.Equal(t, "INSERT", KindInsert.String())
	assert.Equal(t, "UPDATE", KindUpdate.String())
	assert.Equal(t, "DELETE", KindDelete.String())
	assert.Equal(t, "EXPLAIN", KindExplain.String())
	assert.Equal(t, "RAW", KindRaw.String())
}
