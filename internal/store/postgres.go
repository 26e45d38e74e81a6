// Package store provides the EntityStore implementations that persist
// imported records: PostgreSQL for production and an in-memory store for
// dry runs and tests.
package store

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/JonMunkholm/subtrack/internal/core"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schemaSQL string

// PoolConfig holds connection pool settings.
type PoolConfig struct {
	URL             string
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// OpenPool parses cfg, connects and pings the database.
func OpenPool(ctx context.Context, cfg PoolConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = int32(cfg.MaxConns)
	}
	if cfg.MinConns > 0 {
		poolConfig.MinConns = int32(cfg.MinConns)
	}
	if cfg.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// Postgres writes each record as one INSERT into the schema's table.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres creates a store on an open pool.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// EnsureSchema creates the entity tables if they do not exist.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create entity tables: %w", err)
	}
	return nil
}

// Create inserts rec and returns the new row id. Constraint violations are
// returned with the database message so they can be shown per row.
func (p *Postgres) Create(ctx context.Context, schema core.EntitySchema, rec core.Record) (string, error) {
	query, args := buildInsert(schema, rec)

	var id string
	if err := p.pool.QueryRow(ctx, query, args...).Scan(&id); err != nil {
		return "", describeError(err)
	}
	return id, nil
}

// buildInsert renders the INSERT for the record's fields in schema order.
func buildInsert(schema core.EntitySchema, rec core.Record) (string, []any) {
	var (
		cols   []string
		params []string
		args   []any
	)
	for _, f := range schema.Fields {
		v, ok := rec[f.Key]
		if !ok {
			continue
		}
		args = append(args, v)
		cols = append(cols, quoteIdentifier(f.StoreColumn()))
		params = append(params, fmt.Sprintf("$%d", len(args)))
	}

	table := quoteIdentifier(schema.TableName())
	if len(cols) == 0 {
		return fmt.Sprintf("INSERT INTO %s DEFAULT VALUES RETURNING id::text", table), nil
	}
	return fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) RETURNING id::text",
		table,
		strings.Join(cols, ", "),
		strings.Join(params, ", "),
	), args
}

// quoteIdentifier quotes a SQL identifier, escaping embedded quotes.
func quoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// describeError flattens a Postgres error into "message (detail)" so row
// errors read like the database's own wording.
func describeError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	if pgErr.Detail != "" {
		return fmt.Errorf("%s (%s)", pgErr.Message, pgErr.Detail)
	}
	return errors.New(pgErr.Message)
}
