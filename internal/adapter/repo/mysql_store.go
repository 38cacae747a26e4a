package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/aq2208/gorder-oms/internal/usecase"
	"github.com/go-sql-driver/mysql"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const (
	errLockDeadlock = 1213
	txAttempts      = 3
)

type MySQLStore struct{ db *sql.DB }

func NewMySQLStore(db *sql.DB) *MySQLStore { return &MySQLStore{db: db} }

func (s *MySQLStore) Repos() usecase.Repos { return mysqlRepos(s.db) }

// Tx runs fn in a transaction. InnoDB may pick the transaction as a deadlock
// victim while two placements race for the order-number tail; those are
// rerun from scratch.
func (s *MySQLStore) Tx(ctx context.Context, fn func(ctx context.Context, r usecase.Repos) error) error {
	var err error
	for attempt := 1; attempt <= txAttempts; attempt++ {
		err = s.runTx(ctx, fn)
		if !isDeadlock(err) {
			return err
		}
	}
	return err
}

func (s *MySQLStore) runTx(ctx context.Context, fn func(ctx context.Context, r usecase.Repos) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(ctx, mysqlRepos(tx)); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func isDeadlock(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == errLockDeadlock
}

func mysqlRepos(db DBTX) usecase.Repos {
	return usecase.Repos{
		Products:      NewMySQLProductRepo(db),
		Orders:        NewMySQLOrderRepo(db),
		Customers:     NewMySQLCustomerRepo(db),
		Users:         NewMySQLUserRepo(db),
		Notifications: NewMySQLNotificationRepo(db),
		Outbox:        NewMySQLOutboxRepo(db),
	}
}

var _ usecase.Store = (*MySQLStore)(nil)

func exists(ctx context.Context, db DBTX, table, id string) (bool, error) {
	var one int
	err := db.QueryRowContext(ctx, "SELECT 1 FROM "+table+" WHERE id = ?", id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
