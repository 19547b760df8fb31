package postgres

import (
	"context"
	"fmt"

	"github.com/campus-life-events/server/internal/storage"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// querier is satisfied by both pgxpool.Pool and pgx.Tx so every repository
// works unchanged inside and outside a transaction.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type base struct {
	pool *pgxpool.Pool
	tx   pgx.Tx
}

func (b base) q() querier {
	if b.tx != nil {
		return b.tx
	}
	return b.pool
}

type Repository struct {
	base
}

func NewRepository(pool *pgxpool.Pool) (*Repository, error) {
	if pool == nil {
		return nil, fmt.Errorf("postgres repository: pool is nil")
	}
	return &Repository{base: base{pool: pool}}, nil
}

func (r *Repository) Accounts() storage.AccountRepository {
	return &AccountRepository{base: r.base}
}

func (r *Repository) Sessions() storage.SessionRepository {
	return &SessionRepository{base: r.base}
}

func (r *Repository) PasswordResets() storage.PasswordResetRepository {
	return &PasswordResetRepository{base: r.base}
}

func (r *Repository) Organizers() storage.OrganizerRepository {
	return &OrganizerRepository{base: r.base}
}

func (r *Repository) Events() storage.EventRepository {
	return &EventRepository{base: r.base}
}

func (r *Repository) AuditLog() storage.AuditLogRepository {
	return &AuditLogRepository{base: r.base}
}

// WithTx runs fn against a transaction-scoped Repository. A nested call
// reuses the enclosing transaction. Once Commit has been sent it is awaited;
// caller cancellation at that point does not roll the transaction back.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, storage.Repository) error) error {
	if r.tx != nil {
		return fn(ctx, r)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	wrapped := &Repository{base: base{pool: r.pool, tx: tx}}
	if err := fn(ctx, wrapped); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

type AccountRepository struct {
	base
}

type SessionRepository struct {
	base
}

type PasswordResetRepository struct {
	base
}

type OrganizerRepository struct {
	base
}

type EventRepository struct {
	base
}

type AuditLogRepository struct {
	base
}
