// internal/database/store_test.go
package database

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	custom_errors "review-ladder/internal/errors"
)

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"serialization failure", &pgconn.PgError{Code: "40001"}, true},
		{"deadlock", fmt.Errorf("upsert comment 1: %w", &pgconn.PgError{Code: "40P01"}), true},
		{"lock not available", &pgconn.PgError{Code: "55P03"}, true},
		{"statement timeout", &pgconn.PgError{Code: "57014"}, true},
		{"too many connections", &pgconn.PgError{Code: "53300"}, true},
		{"unique violation", &pgconn.PgError{Code: "23505"}, false},
		{"foreign key violation", &pgconn.PgError{Code: "23503"}, false},
		{"deadline exceeded", fmt.Errorf("acquire: %w", context.DeadlineExceeded), true},
		{"already classified", fmt.Errorf("x: %w", custom_errors.ErrTransientStore), true},
		{"plain error", errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}

func TestClassify(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "40001"}

	err := classify(pgErr)
	assert.ErrorIs(t, err, custom_errors.ErrTransientStore)
	assert.ErrorIs(t, err, pgErr)

	wrapped := fmt.Errorf("%w: %w", custom_errors.ErrTransientStore, pgErr)
	assert.Same(t, wrapped, classify(wrapped))

	plain := errors.New("boom")
	assert.Same(t, plain, classify(plain))
}
