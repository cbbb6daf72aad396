package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres stores credentials in the credentials table (see migrations).
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres returns a Postgres-backed implementation.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (p *Postgres) Get(ctx context.Context, key string) (string, bool, error) {
	if err := checkKey(key); err != nil {
		return "", false, err
	}
	if p.pool == nil {
		return "", false, ErrUnavailable
	}

	const query = `
        SELECT value FROM credentials
        WHERE key=$1 AND (expires_at IS NULL OR expires_at > NOW())`

	var value string
	if err := p.pool.QueryRow(ctx, query, key).Scan(&value); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("select credential: %w", err)
	}
	return value, true, nil
}

func (p *Postgres) Set(ctx context.Context, key, value string) error {
	if err := checkKey(key); err != nil {
		return err
	}
	if p.pool == nil {
		return ErrUnavailable
	}

	const query = `
        INSERT INTO credentials (key, value, expires_at)
        VALUES ($1, $2, NULL)
        ON CONFLICT (key) DO UPDATE SET value=EXCLUDED.value, expires_at=NULL, updated_at=NOW()`

	if _, err := p.pool.Exec(ctx, query, key, value); err != nil {
		return fmt.Errorf("upsert credential: %w", err)
	}
	return nil
}

// SetWithTTL stores value with an expiry and sweeps rows that have expired.
func (p *Postgres) SetWithTTL(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := checkKey(key); err != nil {
		return err
	}
	if ttl <= 0 {
		return ErrInvalidTTL
	}
	if p.pool == nil {
		return ErrUnavailable
	}

	const sweep = `DELETE FROM credentials WHERE expires_at IS NOT NULL AND expires_at <= NOW()`
	const query = `
        INSERT INTO credentials (key, value, expires_at)
        VALUES ($1, $2, NOW() + make_interval(secs => $3::float8))
        ON CONFLICT (key) DO UPDATE SET value=EXCLUDED.value, expires_at=EXCLUDED.expires_at, updated_at=NOW()`

	if _, err := p.pool.Exec(ctx, sweep); err != nil {
		return fmt.Errorf("sweep credentials: %w", err)
	}
	if _, err := p.pool.Exec(ctx, query, key, value, ttl.Seconds()); err != nil {
		return fmt.Errorf("upsert credential: %w", err)
	}
	return nil
}

func (p *Postgres) Delete(ctx context.Context, key string) error {
	if err := checkKey(key); err != nil {
		return err
	}
	if p.pool == nil {
		return ErrUnavailable
	}

	const query = `DELETE FROM credentials WHERE key=$1`

	if _, err := p.pool.Exec(ctx, query, key); err != nil {
		return fmt.Errorf("delete credential: %w", err)
	}
	return nil
}

func (p *Postgres) CompareAndDelete(ctx context.Context, key, expected string) (bool, error) {
	if err := checkKey(key); err != nil {
		return false, err
	}
	if p.pool == nil {
		return false, ErrUnavailable
	}

	const query = `DELETE FROM credentials WHERE key=$1 AND value=$2`

	cmd, err := p.pool.Exec(ctx, query, key, expected)
	if err != nil {
		return false, fmt.Errorf("delete credential: %w", err)
	}
	return cmd.RowsAffected() == 1, nil
}
