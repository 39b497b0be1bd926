package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"quizgenai/internal/store"
)

func TestTranslate(t *testing.T) {
	assert.NoError(t, translate(nil))
	assert.ErrorIs(t, translate(pgx.ErrNoRows), store.ErrNotFound)
	assert.ErrorIs(t, translate(fmt.Errorf("scan: %w", pgx.ErrNoRows)), store.ErrNotFound)

	dup := &pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"}
	err := translate(dup)
	assert.ErrorIs(t, err, store.ErrConflict)
	assert.Contains(t, err.Error(), "users_email_key")

	other := errors.New("connection reset")
	assert.Equal(t, other, translate(other))
}

func TestNullableText(t *testing.T) {
	assert.Nil(t, nullableText(""))
	if got := nullableText("g-1"); assert.NotNil(t, got) {
		assert.Equal(t, "g-1", *got)
	}
}
