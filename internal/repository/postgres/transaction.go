package postgres

import (
	"context"

	"portal-service/internal/domain/user"

	"github.com/jackc/pgx/v5"
)

// inActorTx runs fn in one transaction. When ctx carries an actor, its
// identity is visible to row-level policy until the transaction ends.
func (db *DB) inActorTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return errFailedStartTransaction(err)
	}
	defer tx.Rollback(ctx)

	if actor, ok := user.ActorFromContext(ctx); ok {
		_, err := tx.Exec(ctx,
			`SELECT set_config('app.user_id', $1, true), set_config('app.user_role', $2, true)`,
			actor.UserID.String(), string(actor.Role),
		)
		if err != nil {
			return errFailedSetActor(err)
		}
	}

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return errFailedCommitTransaction(err)
	}

	return nil
}
