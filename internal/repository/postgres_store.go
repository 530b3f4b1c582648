package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// PostgresStore Store backed by PostgreSQL (lib/pq).
type PostgresStore struct {
	*pgRepo
	db *sql.DB
}

// NewPostgresStore wraps an open connection pool; schema comes from internal/database migrations.
func NewPostgresStore(db *sql.DB, logger *zap.Logger) *PostgresStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PostgresStore{
		pgRepo: &pgRepo{q: db, logger: logger},
		db:     db,
	}
}

// WithinTx runs fn inside one database transaction; any error rolls it back.
func (s *PostgresStore) WithinTx(ctx context.Context, fn TxFunc) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(ctx, &pgRepo{q: tx, inTx: true, logger: s.logger}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

type pgRepo struct {
	q      queryer
	inTx   bool
	logger *zap.Logger
}

// uniqueViolation PostgreSQL SQLSTATE for unique_violation
const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
