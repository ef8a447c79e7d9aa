package utils

import (
	"context"
	"fmt"
	"time"

	"github.com/UltimateTournament/backoff/v4"
	"github.com/cockroachdb/cockroach-go/v2/crdb/crdbpgx"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

func newBackoff(ctx context.Context) backoff.BackOffContext {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 50 * time.Millisecond
	b.MaxInterval = 2 * time.Second
	b.MaxElapsedTime = 30 * time.Second
	return backoff.WithContext(b, ctx)
}

// ReliableExec acquires a pooled connection and runs f, retrying with
// exponential backoff until f succeeds, returns a permanent error, or ctx ends.
// Each attempt gets its own tryTimeout.
func ReliableExec(ctx context.Context, pool *pgxpool.Pool, tryTimeout time.Duration, f func(ctx context.Context, conn *pgxpool.Conn) error) error {
	return backoff.Retry(func() error {
		tryCtx, cancel := context.WithTimeout(ctx, tryTimeout)
		defer cancel()
		conn, err := pool.Acquire(tryCtx)
		if err != nil {
			return fmt.Errorf("error in pool.Acquire: %w", err)
		}
		defer conn.Release()

		err = f(tryCtx, conn)
		if err != nil && IsPermanent(err) {
			return backoff.Permanent(err)
		}
		return err
	}, newBackoff(ctx))
}

// ReliableExecInTx is ReliableExec with f wrapped in a transaction that
// crdbpgx restarts on serialization failures.
func ReliableExecInTx(ctx context.Context, pool *pgxpool.Pool, tryTimeout time.Duration, f func(ctx context.Context, tx pgx.Tx) error) error {
	return ReliableExec(ctx, pool, tryTimeout, func(ctx context.Context, conn *pgxpool.Conn) error {
		return crdbpgx.ExecuteTx(ctx, conn, pgx.TxOptions{}, func(tx pgx.Tx) error {
			return f(ctx, tx)
		})
	})
}
