package tagstore

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/jaki95/dj-metadata-sync/migrations"
)

// PostgresBackend keeps frames in the udl_frames table, one row per frame.
// It lets a library whose files cannot carry tags share metadata between
// machines.
type PostgresBackend struct {
	pool *pgxpool.Pool
}

// NewPostgresBackend connects to databaseURL and applies pending migrations.
func NewPostgresBackend(ctx context.Context, databaseURL string) (*PostgresBackend, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create database pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return &PostgresBackend{pool: pool}, nil
}

// Migrate applies the embedded migrations. The pool keeps ownership of the
// connections goose borrows.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	db := stdlib.OpenDBFromPool(pool)

	provider, err := goose.NewProvider(goose.DialectPostgres, db, migrations.FS)
	if err != nil {
		return fmt.Errorf("failed to create goose provider: %w", err)
	}
	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	for _, r := range results {
		slog.Info("Applied migration", "version", r.Source.Version, "duration", r.Duration)
	}
	return nil
}

func (b *PostgresBackend) Load(ctx context.Context, location, prefix string) (Frames, error) {
	const q = `
		SELECT description, value
		FROM udl_frames
		WHERE location = @location AND starts_with(description, @prefix)`

	rows, err := b.pool.Query(ctx, q, pgx.NamedArgs{"location": location, "prefix": prefix})
	if err != nil {
		return nil, fmt.Errorf("failed to query frames: %w", err)
	}
	defer rows.Close()

	frames := Frames{}
	for rows.Next() {
		var desc, text string
		if err := rows.Scan(&desc, &text); err != nil {
			return nil, fmt.Errorf("failed to scan frame: %w", err)
		}
		frames[desc] = text
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read frames: %w", err)
	}
	return frames, nil
}

func (b *PostgresBackend) Save(ctx context.Context, location, prefix string, frames Frames) error {
	tx, err := b.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	const del = `
		DELETE FROM udl_frames
		WHERE location = @location AND starts_with(description, @prefix)`
	if _, err := tx.Exec(ctx, del, pgx.NamedArgs{"location": location, "prefix": prefix}); err != nil {
		return fmt.Errorf("failed to delete frames: %w", err)
	}

	if len(frames) > 0 {
		const ins = `
			INSERT INTO udl_frames (location, description, value)
			VALUES (@location, @description, @value)`

		batch := &pgx.Batch{}
		for desc, text := range frames {
			batch.Queue(ins, pgx.NamedArgs{"location": location, "description": desc, "value": text})
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("failed to insert frames: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit frames: %w", err)
	}
	return nil
}

func (b *PostgresBackend) List(ctx context.Context) ([]string, error) {
	rows, err := b.pool.Query(ctx, `SELECT DISTINCT location FROM udl_frames ORDER BY location`)
	if err != nil {
		return nil, fmt.Errorf("failed to query locations: %w", err)
	}
	locations, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to read locations: %w", err)
	}
	return locations, nil
}

// Close closes the connection pool.
func (b *PostgresBackend) Close() error {
	b.pool.Close()
	return nil
}
