package database

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"signupd/internal/domain"
	"signupd/internal/ports/output"
)

var _ output.Store = (*Store)(nil)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx, so one repository
// implementation serves pooled reads and transactional work.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store is the PostgreSQL implementation of output.Store.
type Store struct {
	pool  *pgxpool.Pool
	repos output.Repos
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool, repos: reposFor(pool)}
}

func reposFor(q querier) output.Repos {
	return output.Repos{
		Events:        NewEventRepository(q),
		Instances:     NewInstanceRepository(q),
		Signups:       NewSignupRepository(q),
		Notifications: NewNotificationRepository(q),
	}
}

// Repos returns repositories running outside any transaction.
func (s *Store) Repos() output.Repos {
	return s.repos
}

// WithinTx runs fn in a READ COMMITTED transaction. Capacity decisions rely on
// FindByIDForUpdate row locks, not on a stricter isolation level.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, r output.Repos) error) error {
	err := pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(tx pgx.Tx) error {
		return fn(ctx, reposFor(tx))
	})
	if err == nil {
		return nil
	}
	var de *domain.Error
	if errors.As(err, &de) {
		return err
	}
	return classify(err, nil, "transaction")
}
