package sqldb

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS snapshot_cache (
		collection VARCHAR(32) PRIMARY KEY,
		payload    TEXT        NOT NULL,
		records    INTEGER     NOT NULL,
		version    BIGINT      NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS daily_revenue_reports (
		id               SERIAL PRIMARY KEY,
		report_date      DATE           NOT NULL UNIQUE,
		revenue          NUMERIC(14, 2) NOT NULL,
		completed_orders INTEGER        NOT NULL,
		status_histogram TEXT           NOT NULL,
		by_product       TEXT           NOT NULL,
		created_at       TIMESTAMPTZ    NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at       TIMESTAMPTZ    NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS snapshot_cache (
		collection TEXT     PRIMARY KEY,
		payload    TEXT     NOT NULL,
		records    INTEGER  NOT NULL,
		version    INTEGER  NOT NULL,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS daily_revenue_reports (
		id               INTEGER PRIMARY KEY AUTOINCREMENT,
		report_date      DATE     NOT NULL UNIQUE,
		revenue          TEXT     NOT NULL,
		completed_orders INTEGER  NOT NULL,
		status_histogram TEXT     NOT NULL,
		by_product       TEXT     NOT NULL,
		created_at       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
}

// EnsureSchema cria as tabelas do cache offline e dos relatórios diários
func (c *Connection) EnsureSchema(ctx context.Context) error {
	statements := postgresSchema
	if c.driver == DriverSQLite {
		statements = sqliteSchema
	}

	err := c.RunInTransaction(ctx, func(tx *sql.Tx) error {
		for _, stmt := range statements {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return pkgerrors.Wrap(err, "erro ao criar schema")
	}

	logrus.WithField("driver", c.driver).Debug("Schema do banco verificado")
	return nil
}

// ErrorFields extrai o código de erro específico do driver para os logs
func ErrorFields(err error) logrus.Fields {
	fields := logrus.Fields{}

	var pqErr *pq.Error
	var pgErr *pgconn.PgError
	var sqliteErr sqlite3.Error

	switch {
	case errors.As(err, &pqErr):
		fields["sql_state"] = string(pqErr.Code)
		fields["sql_error"] = pqErr.Code.Name()
	case errors.As(err, &pgErr):
		fields["sql_state"] = pgErr.Code
	case errors.As(err, &sqliteErr):
		fields["sql_state"] = sqliteErr.Code.Error()
		fields["sql_extended"] = int(sqliteErr.ExtendedCode)
	}
	return fields
}
