package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrNotFound is returned when a row does not exist.
var ErrNotFound = pgx.ErrNoRows

// ErrVersionConflict is returned when a ticket was modified since it was read.
var ErrVersionConflict = errors.New("repository: version conflict")

// ErrDuplicate is returned when a unique key (ticket number, login email) is taken.
var ErrDuplicate = errors.New("repository: duplicate key")

func mapUniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicate
	}
	return err
}

// DBTX is satisfied by *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repositories bundles every repository bound to one connection or transaction.
type Repositories struct {
	Tickets        TicketRepository
	Quotes         QuoteRepository
	Events         WorkflowEventRepository
	Communications CommunicationRepository
	Tenants        TenantRepository
	Contractors    ContractorRepository
	Users          UserRepository
}

// Store hands out repositories and runs units of work atomically.
type Store interface {
	Repos() Repositories
	// WithinTx runs fn against repositories bound to one transaction. The
	// transaction commits when fn returns nil and rolls back otherwise.
	WithinTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
}

// NewRepositories binds all Postgres repositories to db.
func NewRepositories(db DBTX) Repositories {
	return Repositories{
		Tickets:        NewTicketRepository(db),
		Quotes:         NewQuoteRepository(db),
		Events:         NewWorkflowEventRepository(db),
		Communications: NewCommunicationRepository(db),
		Tenants:        NewTenantRepository(db),
		Contractors:    NewContractorRepository(db),
		Users:          NewUserRepository(db),
	}
}

// TxBeginner is the part of *pgxpool.Pool the store needs.
type TxBeginner interface {
	DBTX
	Begin(ctx context.Context) (pgx.Tx, error)
}

type pgStore struct {
	pool TxBeginner
}

// NewPostgresStore builds a Store over a pgx pool.
func NewPostgresStore(pool TxBeginner) Store {
	return &pgStore{pool: pool}
}

func (s *pgStore) Repos() Repositories {
	return NewRepositories(s.pool)
}

func (s *pgStore) WithinTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := fn(ctx, NewRepositories(tx)); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
