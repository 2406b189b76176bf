package postgres

import (
	"context"
	"embed"
	"fmt"
	"io/fs"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
	"github.com/spf13/viper"
)

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

// Client represents a Postgres client.
type Client struct {
	pool *pgxpool.Pool
	db   *sqlx.DB
}

// Pool returns the underlying connection pool.
func (p *Client) Pool() *pgxpool.Pool {
	return p.pool
}

// DB returns a database/sql view over the pool for sqlx based repositories.
func (p *Client) DB() *sqlx.DB {
	return p.db
}

// Close closes the database connection for graceful shutdown.
func (p *Client) Close() error {
	err := p.db.Close()
	p.pool.Close()

	return err
}

// MustNewClient creates a new Postgres client from store.uri and runs migrations.
func MustNewClient() *Client {
	uri := viper.GetString("store.uri")
	if uri == "" {
		panic("store.uri is not set")
	}

	client, err := NewClient(context.Background(), uri, viper.GetString("store.migrations_path"))
	if err != nil {
		panic(err)
	}

	return client
}

// NewClient connects to Postgres and applies migrations.
// An empty migrationsPath uses the migrations embedded in the binary.
func NewClient(ctx context.Context, uri, migrationsPath string) (*Client, error) {
	config, err := pgxpool.ParseConfig(uri)
	if err != nil {
		return nil, fmt.Errorf("failed to parse postgres uri: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()

		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	db := sqlx.NewDb(stdlib.OpenDBFromPool(pool), "pgx")

	if err := migrate(db, migrationsPath); err != nil {
		_ = db.Close()
		pool.Close()

		return nil, err
	}

	return &Client{
		pool: pool,
		db:   db,
	}, nil
}

func migrate(db *sqlx.DB, migrationsPath string) error {
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	dir := migrationsPath
	if dir == "" {
		sub, err := fs.Sub(embeddedMigrations, "migrations")
		if err != nil {
			return fmt.Errorf("failed to open embedded migrations: %w", err)
		}
		goose.SetBaseFS(sub)
		defer goose.SetBaseFS(nil)
		dir = "."
	}

	if err := goose.Up(db.DB, dir); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	return nil
}
