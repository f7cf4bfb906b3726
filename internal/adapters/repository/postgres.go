package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresKV stores records in a Postgres table through a pgx pool.
type PostgresKV struct {
	pool  *pgxpool.Pool
	table string
}

// OpenPostgres connects to dsn and ensures the table exists.
func OpenPostgres(ctx context.Context, dsn string, opts ...Option) (*PostgresKV, error) {
	o := applyOptions(opts)
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	schema := `CREATE TABLE IF NOT EXISTS ` + o.table + ` (
  k          TEXT PRIMARY KEY,
  v          JSONB NOT NULL,
  updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create postgres schema: %w", err)
	}
	return &PostgresKV{pool: pool, table: o.table}, nil
}

func (p *PostgresKV) Get(ctx context.Context, key string) ([]byte, error) {
	var v []byte
	err := p.pool.QueryRow(ctx, `SELECT v FROM `+p.table+` WHERE k = $1`, key).Scan(&v)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("postgres get %s: %w", key, err)
	}
	return v, nil
}

func (p *PostgresKV) Put(ctx context.Context, key string, value []byte) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO `+p.table+` (k, v, updated_at) VALUES ($1, $2, now())
ON CONFLICT (k) DO UPDATE SET v = EXCLUDED.v, updated_at = EXCLUDED.updated_at`, key, value)
	if err != nil {
		return fmt.Errorf("postgres put %s: %w", key, err)
	}
	return nil
}

func (p *PostgresKV) Delete(ctx context.Context, key string) error {
	if _, err := p.pool.Exec(ctx, `DELETE FROM `+p.table+` WHERE k = $1`, key); err != nil {
		return fmt.Errorf("postgres delete %s: %w", key, err)
	}
	return nil
}

func (p *PostgresKV) List(ctx context.Context, prefix string) ([]Pair, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT k, v FROM `+p.table+` WHERE left(k, length($1)) = $1 ORDER BY k`, prefix)
	if err != nil {
		return nil, fmt.Errorf("postgres list %s: %w", prefix, err)
	}
	defer rows.Close()

	out := make([]Pair, 0)
	for rows.Next() {
		var pr Pair
		if err := rows.Scan(&pr.Key, &pr.Value); err != nil {
			return nil, fmt.Errorf("postgres scan: %w", err)
		}
		out = append(out, pr)
	}
	return out, rows.Err()
}

func (p *PostgresKV) Driver() string { return "postgres" }

func (p *PostgresKV) Close() error {
	p.pool.Close()
	return nil
}
