package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
)

type txCtxKey struct{}

// txState is what InTx hangs on the context: the transaction itself plus
// side effects that must wait until it commits.
type txState struct {
	tx          *sqlx.Tx
	afterCommit []func()
}

// dbtx is the subset of sqlx satisfied by both *sqlx.DB and *sqlx.Tx, so a
// repository transparently runs against whichever the context carries.
type dbtx interface {
	sqlx.ExtContext
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	NamedExecContext(ctx context.Context, query string, arg interface{}) (sql.Result, error)
}

func querier(ctx context.Context, db *sqlx.DB) dbtx {
	if state, ok := ctx.Value(txCtxKey{}).(*txState); ok && state.tx != nil {
		return state.tx
	}
	return db
}

// AfterCommit defers fn until the enclosing transaction commits. A reader
// racing the transaction must never re-cache pre-commit state, so cache
// invalidation goes through here. Outside a transaction fn runs immediately;
// on rollback it never runs.
func AfterCommit(ctx context.Context, fn func()) {
	if state, ok := ctx.Value(txCtxKey{}).(*txState); ok {
		state.afterCommit = append(state.afterCommit, fn)
		return
	}
	fn()
}

// TxManager implements domain.Transactor on Postgres. The advisory lock in
// LockDay is transaction-scoped, so it releases with the commit or rollback
// and serializes concurrent writers on the same (profile, date) key.
type TxManager struct {
	db *sqlx.DB
}

func NewTxManager(db *sqlx.DB) *TxManager {
	return &TxManager{db: db}
}

func (m *TxManager) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txCtxKey{}).(*txState); ok {
		// Already inside a transaction; join it.
		return fn(ctx)
	}

	tx, err := m.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	state := &txState{tx: tx}
	if err := fn(context.WithValue(ctx, txCtxKey{}, state)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback after %w: %v", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	for _, hook := range state.afterCommit {
		hook()
	}
	return nil
}

func (m *TxManager) LockDay(ctx context.Context, profileID, day string) error {
	q := querier(ctx, m.db)
	_, err := q.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, profileID+":"+day)
	if err != nil {
		return fmt.Errorf("acquire day lock for %s/%s: %w", profileID, day, err)
	}
	return nil
}

// LockProfile serializes all writers of one profile's goals row. Day locks
// are always taken first, so the acquisition order is the same everywhere.
func (m *TxManager) LockProfile(ctx context.Context, profileID string) error {
	q := querier(ctx, m.db)
	_, err := q.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, profileID)
	if err != nil {
		return fmt.Errorf("acquire profile lock for %s: %w", profileID, err)
	}
	return nil
}
