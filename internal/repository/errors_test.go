package repository

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestErrorClassifiers(t *testing.T) {
	t.Parallel()

	dup := fmt.Errorf("insert: %w", &pgconn.PgError{Code: codeUniqueViolation})
	serial := &pgconn.PgError{Code: codeSerializationFailure}
	deadlock := &pgconn.PgError{Code: codeDeadlockDetected}
	other := errors.New("boom")

	assert.True(t, IsDuplicate(dup))
	assert.False(t, IsDuplicate(serial))
	assert.False(t, IsDuplicate(other))

	assert.True(t, IsConcurrentUpdate(serial))
	assert.True(t, IsConcurrentUpdate(deadlock))
	assert.False(t, IsConcurrentUpdate(dup))
	assert.False(t, IsConcurrentUpdate(nil))

	assert.True(t, IsNotFound(fmt.Errorf("load: %w", pgx.ErrNoRows)))
	assert.False(t, IsNotFound(other))
}
