package postgresql

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/S1riyS/happyphone/server/pkg/logging"
	"github.com/S1riyS/happyphone/server/pkg/logging/slogext"
)

type txKey struct{}

// WithTransaction runs fn in a transaction with the server's default options.
func WithTransaction(ctx context.Context, db Client, fn func(context.Context) error) error {
	return WithTransactionOptions(ctx, db, pgx.TxOptions{}, fn)
}

// WithTransactionOptions runs fn in a transaction carried by the context given
// to fn. A call made while ctx already carries a transaction joins it, so opts
// only apply to the outermost call.
func WithTransactionOptions(ctx context.Context, db Client, opts pgx.TxOptions, fn func(context.Context) error) (err error) {
	const op = "postgresql.WithTransaction"

	if _, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return fn(ctx)
	}

	tx, err := beginTx(ctx, db, opts)
	if err != nil {
		return fmt.Errorf("%s: begin: %w", op, err)
	}

	defer func() {
		p := recover()
		if p == nil && err == nil {
			if err = tx.Commit(ctx); err != nil {
				err = fmt.Errorf("%s: commit: %w", op, err)
			}
			return
		}

		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			logging.GetLoggerFromContextWithOp(ctx, op).Error("Failed to roll back", slogext.Err(rbErr))
		}
		if p != nil {
			panic(p)
		}
	}()

	return fn(context.WithValue(ctx, txKey{}, tx))
}

// GetDBClient returns the transaction carried by ctx, or defaultClient.
func GetDBClient(ctx context.Context, defaultClient Client) Client {
	if tx, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return tx
	}
	return defaultClient
}

type txBeginner interface {
	BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error)
}

func beginTx(ctx context.Context, db Client, opts pgx.TxOptions) (pgx.Tx, error) {
	if b, ok := db.(txBeginner); ok {
		return b.BeginTx(ctx, opts)
	}
	return db.Begin(ctx)
}
