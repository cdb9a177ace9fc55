package db

import (
	"fmt"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestIsDuplicateKeyErr(t *testing.T) {
	assert.False(t, IsDuplicateKeyErr(nil))
	assert.True(t, IsDuplicateKeyErr(gorm.ErrDuplicatedKey))
	assert.True(t, IsDuplicateKeyErr(fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})))
	assert.True(t, IsDuplicateKeyErr(errors.New("UNIQUE constraint failed: invoices.public_token")))
	assert.False(t, IsDuplicateKeyErr(&pgconn.PgError{Code: "40001"}))
}

func TestClassifyMarksConflicts(t *testing.T) {
	for _, code := range []string{"40001", "40P01", "55P03"} {
		err := Classify(fmt.Errorf("update: %w", &pgconn.PgError{Code: code}))
		assert.True(t, errors.Is(err, ErrConflict), code)
	}

	err := Classify(errors.New("database is locked (5) (SQLITE_BUSY)"))
	assert.True(t, errors.Is(err, ErrConflict))

	plain := errors.New("syntax error")
	assert.Equal(t, plain, Classify(plain))
	assert.Nil(t, Classify(nil))
}
