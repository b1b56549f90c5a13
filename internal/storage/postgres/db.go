// Package postgres is the PostgreSQL storage layer used by multi-instance
// deployments. Queries run on a pgx pool; the schema is managed by goose.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"
	"github.com/mindbreaker/mindbreaker/internal/storage/postgres/migrations"
	"github.com/pressly/goose/v3"
)

const connectTimeout = 5 * time.Second

// DB wraps a pgx connection pool.
type DB struct {
	Pool *pgxpool.Pool
	url  string
}

// Open connects to the database at url and verifies connectivity.
func Open(ctx context.Context, url string) (*DB, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &DB{Pool: pool, url: url}, nil
}

// Close releases every pooled connection.
func (db *DB) Close() {
	db.Pool.Close()
}

// Ping checks that the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	return db.Pool.Ping(ctx)
}

// Migrate applies pending goose migrations.
func (db *DB) Migrate(ctx context.Context) error {
	conn, err := db.sqlDB()
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := goose.UpContext(ctx, conn, "."); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	slog.Info("migrations complete", "dialect", "postgres")
	return nil
}

// Version returns the current goose schema version.
func (db *DB) Version(ctx context.Context) (int64, error) {
	conn, err := db.sqlDB()
	if err != nil {
		return 0, err
	}
	defer conn.Close()

	return goose.GetDBVersionContext(ctx, conn)
}

// sqlDB opens a database/sql handle for goose, which does not speak pgx.
func (db *DB) sqlDB() (*sql.DB, error) {
	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return nil, fmt.Errorf("set goose dialect: %w", err)
	}

	conn, err := sql.Open("postgres", db.url)
	if err != nil {
		return nil, fmt.Errorf("open migration connection: %w", err)
	}
	return conn, nil
}

// InTx runs fn inside a transaction and commits if it returns nil.
func (db *DB) InTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	return pgx.BeginFunc(ctx, db.Pool, fn)
}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}
