package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/tumbleweedd/food_ordering_system/pkg/logger"
)

type PgDB struct {
	db  *sqlx.DB
	log logger.Logger
}

func NewPostgresDB(ctx context.Context, log logger.Logger, dsn string) (*PgDB, error) {
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}

	pgDB := &PgDB{
		db:  db,
		log: log,
	}

	if err = pgDB.Ping(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return pgDB, nil
}

// DSN builds a lib/pq connection string.
func DSN(host, port, user, dbName, pwd, sslMode string) string {
	return fmt.Sprintf("host=%s port=%s user=%s dbname=%s password=%s sslmode=%s",
		host, port, user, dbName, pwd, sslMode)
}

func (pg *PgDB) GetDB() *sqlx.DB {
	return pg.db
}

func (pg *PgDB) Close() error {
	return pg.db.Close()
}

func (pg *PgDB) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 1*time.Second)
	defer cancel()

	status := "up"
	if err := pg.db.PingContext(ctx); err != nil {
		status = "down"
		pg.log.Error("database status", logger.String("status", status), logger.Err(err))
		return err
	}
	pg.log.Debug("database status", logger.String("status", status))

	return nil
}
