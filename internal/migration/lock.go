package migration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// migrateLockKey is the pg advisory lock key shared by every ratebook
// migrator ("RATEBOOK" in ASCII, truncated to int64).
const migrateLockKey int64 = 0x52415445424f4f4b

var ErrMigrationInProgress = errors.New("another ratebook migrator holds the schema lock")

// withMigrateLock runs fn while holding the session advisory lock. The lock
// and its release share one pinned connection so the unlock reaches the
// session that took it.
func withMigrateLock(ctx context.Context, db *sql.DB, fn func() error) error {
	if db == nil {
		return errors.New("migrate lock requires database handle")
	}
	conn, err := db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("pin lock connection: %w", err)
	}
	defer conn.Close()

	var locked bool
	if err := conn.QueryRowContext(ctx, "SELECT pg_try_advisory_lock($1)", migrateLockKey).Scan(&locked); err != nil {
		return fmt.Errorf("acquire migrate lock: %w", err)
	}
	if !locked {
		return ErrMigrationInProgress
	}
	defer func() {
		_, _ = conn.ExecContext(context.Background(), "SELECT pg_advisory_unlock($1)", migrateLockKey)
	}()

	return fn()
}
