// Package transaction is the unit of work shared by the stores of one service.
package transaction

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/tumbleweedd/food_ordering_system/pkg/logger"
)

type txKey struct{}

type Manager struct {
	db  *sqlx.DB
	log logger.Logger
}

func New(log logger.Logger, db *sqlx.DB) *Manager {
	return &Manager{db: db, log: log}
}

// Do runs fn inside one serializable transaction. Stores called with the context passed to fn
// join that transaction. The transaction commits only if fn returns nil.
func (m *Manager) Do(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	const op = "repository.transaction.Do"

	if _, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return fn(ctx)
	}

	tx, err := m.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		m.log.Error(op, logger.String("error", err.Error()))
		return fmt.Errorf("%s: begin transaction: %w", op, err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}

		if err != nil {
			if rollBackErr := tx.Rollback(); rollBackErr != nil {
				m.log.Error(op, logger.String("error", rollBackErr.Error()))
				err = errors.Join(err, fmt.Errorf("%s: rollback transaction: %w", op, rollBackErr))
			}
		}
	}()

	if err = fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		m.log.Error(op, logger.String("error", err.Error()))
		return fmt.Errorf("%s: commit transaction: %w", op, err)
	}

	return nil
}

// Querier returns the transaction bound to ctx, or db when there is none.
func Querier(ctx context.Context, db *sqlx.DB) sqlx.ExtContext {
	if tx, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return tx
	}

	return db
}
