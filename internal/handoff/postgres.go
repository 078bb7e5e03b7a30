package handoff

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres backs the client kv store with a single upsert table. One row per
// (scope, key); updated_at is informational only.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *Postgres { return &Postgres{pool: pool} }

func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

func (p *Postgres) Get(ctx context.Context, scope, key string) ([]byte, error) {
	var value []byte
	err := p.pool.QueryRow(ctx,
		`SELECT value FROM client_kv WHERE scope = $1 AND key = $2`,
		scope, key,
	).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return value, nil
}

func (p *Postgres) Put(ctx context.Context, scope, key string, value []byte) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO client_kv (scope, key, value, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (scope, key) DO UPDATE SET
		  value = EXCLUDED.value,
		  updated_at = now()
	`, scope, key, value)
	return err
}

func (p *Postgres) Delete(ctx context.Context, scope, key string) error {
	_, err := p.pool.Exec(ctx,
		`DELETE FROM client_kv WHERE scope = $1 AND key = $2`,
		scope, key,
	)
	return err
}
