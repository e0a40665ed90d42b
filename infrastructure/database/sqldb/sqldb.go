// Package sqldb abre a conexão SQL do cache offline e dos relatórios.
// Suporta Postgres (lib/pq ou pgx) e SQLite para operação local.
package sqldb

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Masterminds/squirrel"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

const (
	DriverPostgres = "postgres"
	DriverPgx      = "pgx"
	DriverSQLite   = "sqlite3"
)

type Config struct {
	Driver string
	DSN    string
}

// Executor é o que os repositórios usam da conexão: queries com contexto e o
// construtor de queries no placeholder do dialeto
type Executor interface {
	Exec(ctx context.Context, query string, args ...any) (sql.Result, error)
	Query(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRow(ctx context.Context, query string, args ...any) *sql.Row
	Builder() squirrel.StatementBuilderType
}

var _ Executor = (*Connection)(nil)

type Connection struct {
	*sql.DB
	driver string
}

func NewConnection(
	ctx context.Context,
	cfg Config,
) (*Connection, error) {
	switch cfg.Driver {
	case DriverPostgres, DriverPgx, DriverSQLite:
	default:
		return nil, fmt.Errorf("driver de banco não suportado: %q", cfg.Driver)
	}

	db, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, err
	}

	if cfg.Driver == DriverSQLite {
		// Um único escritor evita "database is locked"
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Connection{DB: db, driver: cfg.Driver}, nil
}

func (c *Connection) Driver() string { return c.driver }

// Builder retorna o construtor de queries com o placeholder do dialeto
func (c *Connection) Builder() squirrel.StatementBuilderType {
	if c.driver == DriverSQLite {
		return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question)
	}
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

func (c *Connection) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return c.DB.ExecContext(ctx, query, args...)
}

func (c *Connection) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return c.DB.QueryContext(ctx, query, args...)
}

func (c *Connection) QueryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return c.DB.QueryRowContext(ctx, query, args...)
}

// RunInTransaction executa fn numa transação; erro ou panic em fn desfaz tudo
func (c *Connection) RunInTransaction(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := c.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() {
		if err := recover(); err != nil {
			_ = tx.Rollback()
			panic(err)
		}
	}()

	if err := fn(tx); err != nil {
		if err := tx.Rollback(); err != nil {
			return err
		}
		return err
	}

	return tx.Commit()
}
