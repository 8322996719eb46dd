// internal/database/store.go
package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	custom_errors "review-ladder/internal/errors"
)

// TxRunner runs a unit of work inside a single transaction. Either every
// write made through the Querier handed to fn becomes visible, or none does.
type TxRunner interface {
	InTx(ctx context.Context, fn func(q Querier) error) error
}

// Store is the Postgres backed Querier and TxRunner.
type Store struct {
	*Queries
	pool *pgxpool.Pool
}

// NewStore wraps a connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{
		Queries: New(pool),
		pool:    pool,
	}
}

// InTx begins a transaction, runs fn and commits if fn returns nil.
// Transient failures are wrapped with custom_errors.ErrTransientStore.
func (s *Store) InTx(ctx context.Context, fn func(q Querier) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return classify(fmt.Errorf("begin transaction: %w", err))
	}
	defer tx.Rollback(ctx) // Rollback is a no-op if the transaction is already committed.

	if err := fn(s.Queries.WithTx(tx)); err != nil {
		return classify(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return classify(fmt.Errorf("commit transaction: %w", err))
	}
	return nil
}

// Postgres error codes that clear up on retry.
var transientCodes = map[string]bool{
	"40001": true, // serialization_failure
	"40P01": true, // deadlock_detected
	"55P03": true, // lock_not_available
	"57014": true, // query_canceled (statement or lock timeout)
	"53300": true, // too_many_connections
}

// IsTransient reports whether err is a Postgres or pool failure that may
// succeed if the work is attempted again later.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if custom_errors.IsTransient(err) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return transientCodes[pgErr.Code]
	}
	return pgconn.SafeToRetry(err) || errors.Is(err, context.DeadlineExceeded)
}

func classify(err error) error {
	if IsTransient(err) && !custom_errors.IsTransient(err) {
		return fmt.Errorf("%w: %w", custom_errors.ErrTransientStore, err)
	}
	return err
}
