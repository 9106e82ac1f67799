package util

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToDomainErrorPassthrough(t *testing.T) {
	original := NewForbidden("no access")
	mapped := ToDomainError(original)
	require.NotNil(t, mapped)
	assert.Equal(t, CodeForbidden, mapped.Code)
	assert.Equal(t, http.StatusForbidden, mapped.HTTPStatus)
}

func TestToDomainErrorNoRows(t *testing.T) {
	mapped := ToDomainError(fmt.Errorf("fetch: %w", pgx.ErrNoRows))
	require.NotNil(t, mapped)
	assert.Equal(t, CodeNotFound, mapped.Code)
	assert.Equal(t, http.StatusNotFound, mapped.HTTPStatus)
}

func TestToDomainErrorUniqueViolation(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "tickets_request_number_key"}
	mapped := ToDomainError(pgErr)
	require.NotNil(t, mapped)
	assert.Equal(t, CodeConflict, mapped.Code)
	assert.Equal(t, http.StatusConflict, mapped.HTTPStatus)
	assert.Equal(t, "tickets_request_number_key", mapped.Details["constraint"])
}

func TestToDomainErrorCheckViolation(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23514", ConstraintName: "tickets_status_check"}
	mapped := ToDomainError(pgErr)
	require.NotNil(t, mapped)
	assert.Equal(t, CodeValidation, mapped.Code)
	assert.Equal(t, http.StatusBadRequest, mapped.HTTPStatus)
}

func TestToDomainErrorUnknown(t *testing.T) {
	mapped := ToDomainError(errors.New("boom"))
	require.NotNil(t, mapped)
	assert.Equal(t, CodeInternal, mapped.Code)
	assert.Equal(t, http.StatusInternalServerError, mapped.HTTPStatus)
}

func TestToDomainErrorNil(t *testing.T) {
	assert.Nil(t, ToDomainError(nil))
}
