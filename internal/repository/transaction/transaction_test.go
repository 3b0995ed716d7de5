package transaction

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/tumbleweedd/food_ordering_system/pkg/logger"
)

func newManager(t *testing.T) (*Manager, *sqlx.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	sqlxDB := sqlx.NewDb(db, "sqlmock")

	return New(logger.NewSlogLogger(logger.EnvLocal), sqlxDB), sqlxDB, mock
}

func TestDoCommits(t *testing.T) {
	m, db, mock := newManager(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE orders").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := m.Do(ctx, func(ctx context.Context) error {
		_, err := Querier(ctx, db).ExecContext(ctx, "UPDATE orders SET status = $1", "PAID")
		return err
	})

	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDoRollsBack(t *testing.T) {
	m, _, mock := newManager(t)
	ctx := context.Background()
	failure := errors.New("saga step failed")

	mock.ExpectBegin()
	mock.ExpectRollback()

	err := m.Do(ctx, func(ctx context.Context) error {
		return failure
	})

	require.ErrorIs(t, err, failure)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestQuerierWithoutTransaction(t *testing.T) {
	_, db, _ := newManager(t)

	require.Equal(t, db, Querier(context.Background(), db))
}

func TestDoNested(t *testing.T) {
	m, _, mock := newManager(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectCommit()

	err := m.Do(ctx, func(ctx context.Context) error {
		return m.Do(ctx, func(context.Context) error { return nil })
	})

	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
